package application

import "log/slog"

// ResolveLogger falls back to the process default when no logger is
// injected.
func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
