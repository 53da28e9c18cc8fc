package events

import (
	"context"

	"go.uber.org/zap"
)

// LogPublisher writes events to the log. It stands in for a broker when
// none is configured.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	p.logger.Info("Order event",
		zap.String("id", e.ID),
		zap.String("type", e.Type),
		zap.String("orderId", e.OrderID),
		zap.String("userId", e.UserID),
		zap.String("status", string(e.Status)),
		zap.Float64("total", e.Total),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
