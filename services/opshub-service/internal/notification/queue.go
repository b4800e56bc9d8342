package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/pkg/errors"
	"github.com/suteetoe/opshub/gomicro/logger"
	"github.com/suteetoe/opshub/services/opshub-service/prometheus"
	"go.uber.org/zap"
)

// TaskAssignmentRequest is the asynq task type for queued notifications
const TaskAssignmentRequest = "notification:assignment_request"

// NewTask wraps n in an asynq task that is never retried
func NewTask(n Notification) (*asynq.Task, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(
		TaskAssignmentRequest,
		payload,
		asynq.MaxRetry(0),
		asynq.Timeout(30*time.Second),
	), nil
}

// Enqueuer is the part of asynq.Client used by QueueDispatcher
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueDispatcher hands notifications to an asynq worker through redis
type QueueDispatcher struct {
	client Enqueuer
}

func NewQueueDispatcher(client Enqueuer) *QueueDispatcher {
	return &QueueDispatcher{client: client}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, n Notification) {
	if len(n.Recipients) == 0 {
		return
	}
	log := logger.FromContext(ctx)

	task, err := NewTask(n)
	if err == nil {
		_, err = d.client.EnqueueContext(context.WithoutCancel(ctx), task)
	}
	if err != nil {
		prometheus.RecordNotification(string(n.Event), err)
		log.Error("Failed to enqueue notification",
			zap.String("event", string(n.Event)),
			zap.String("request_id", n.RequestID.String()),
			zap.Error(err))
	}
}

// Worker consumes queued notifications and sends them
type Worker struct {
	server *asynq.Server
	sender Sender
	log    *zap.Logger
}

func NewWorker(redisOpt asynq.RedisClientOpt, concurrency int, sender Sender, log *zap.Logger) *Worker {
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Logger:      log.Sugar(),
	})
	return &Worker{server: server, sender: sender, log: log}
}

// Start runs the worker in the background
func (w *Worker) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskAssignmentRequest, w.Handle)

	w.log.Info("Starting notification worker")
	return w.server.Start(mux)
}

func (w *Worker) Shutdown() {
	w.log.Info("Stopping notification worker")
	w.server.Shutdown()
}

// Handle sends one queued notification
func (w *Worker) Handle(ctx context.Context, t *asynq.Task) error {
	var n Notification
	if err := json.Unmarshal(t.Payload(), &n); err != nil {
		return errors.Wrap(err, "decode notification payload")
	}

	err := w.sender.Send(ctx, n)
	prometheus.RecordNotification(string(n.Event), err)
	if err != nil {
		w.log.Error("Failed to send queued notification",
			zap.String("event", string(n.Event)),
			zap.String("request_id", n.RequestID.String()),
			zap.Error(err))
		return err
	}
	return nil
}
