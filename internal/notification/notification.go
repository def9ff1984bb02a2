package notification

import (
	"context"
	"log/slog"

	"github.com/simple-bank/simple_bank/internal/logging"
)

const (
	// KindTransferReceived tells an account holder that funds arrived from another account.
	KindTransferReceived = "transfer_received"
)

// Message describes a notification payload. Destination is an account id.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the request logger in place of a real
// delivery channel.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(ctx context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	logging.FromContext(ctx, n.logger).Info("notification",
		slog.String("kind", message.Kind),
		slog.String("account_id", message.Destination),
		slog.String("body", message.Body),
	)
	return nil
}
