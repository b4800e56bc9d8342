package notification

import (
	"context"

	"go.uber.org/zap"
)

// LogSender writes notifications to the log. It is used when no email provider is configured.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, n Notification) error {
	s.log.Info("Notification",
		zap.String("event", string(n.Event)),
		zap.String("request_id", n.RequestID.String()),
		zap.Strings("recipients", n.Recipients),
		zap.String("project", n.ProjectName))
	return nil
}
