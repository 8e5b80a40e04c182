package logger

import (
	"log"
	"log/slog"
)

// New returns a stdlib logger that forwards into base, tagged with component.
// It exists for APIs that still want *log.Logger, such as http.Server.ErrorLog.
func New(component string, base *slog.Logger) *log.Logger {
	if base == nil {
		base = slog.Default()
	}
	handler := base.With("component", component).Handler()
	return slog.NewLogLogger(handler, slog.LevelError)
}
