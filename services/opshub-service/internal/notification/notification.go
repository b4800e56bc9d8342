// Package notification delivers assignment request events to approvers and requesters.
// Delivery is best-effort: failures are logged and counted, never returned to the caller.
package notification

import (
	"context"

	"github.com/google/uuid"
	"github.com/suteetoe/opshub/gomicro/logger"
	"github.com/suteetoe/opshub/services/opshub-service/prometheus"
	"go.uber.org/zap"
)

type Event string

const (
	EventRequestCreated  Event = "assignment_request.created"
	EventRequestApproved Event = "assignment_request.approved"
	EventRequestRejected Event = "assignment_request.rejected"
)

// Notification is one event addressed to a list of recipients
type Notification struct {
	Event        Event     `json:"event"`
	TenantID     uuid.UUID `json:"tenant_id"`
	RequestID    uuid.UUID `json:"request_id"`
	Recipients   []string  `json:"recipients"`
	ProjectName  string    `json:"project_name"`
	RequestedFor string    `json:"requested_for"`
	RequestedBy  string    `json:"requested_by"`
	Notes        string    `json:"notes,omitempty"`
}

// Sender delivers a notification synchronously
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// Dispatcher hands a notification off without blocking the caller
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification)
}

// AsyncDispatcher sends each notification on its own goroutine
type AsyncDispatcher struct {
	sender Sender
}

func NewAsyncDispatcher(sender Sender) *AsyncDispatcher {
	return &AsyncDispatcher{sender: sender}
}

func (d *AsyncDispatcher) Dispatch(ctx context.Context, n Notification) {
	if len(n.Recipients) == 0 {
		return
	}
	// the request context ends with the response; keep only its logger
	log := logger.FromContext(ctx)
	go func() {
		err := d.sender.Send(context.Background(), n)
		prometheus.RecordNotification(string(n.Event), err)
		if err != nil {
			log.Error("Failed to send notification",
				zap.String("event", string(n.Event)),
				zap.String("request_id", n.RequestID.String()),
				zap.Error(err))
		}
	}()
}
