package alert

import (
	"context"
	"log/slog"

	"github.com/gen2brain/beeep"
)

// Toast shows a desktop notification. When the platform refuses, the alert
// is logged instead and Send still succeeds.
type Toast struct {
	notify func(title, message string) error
	logger *slog.Logger
}

func NewToast(logger *slog.Logger) *Toast {
	if logger == nil {
		logger = slog.Default()
	}
	return &Toast{
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
		logger: logger.With("component", "toast"),
	}
}

func (t *Toast) Name() string {
	return "toast"
}

func (t *Toast) Send(ctx context.Context, a Alert) error {
	if err := t.notify(a.Title, a.Message); err != nil {
		t.logger.Warn("toast unavailable", "title", a.Title, "message", a.Message, "error", err)
	}
	return nil
}
