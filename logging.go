package observer

import "time"

// ChangeLogEvent describes one wrapper operation for logging.
type ChangeLogEvent struct {
	Op       string
	Property string
	Previous any
	Current  any
	Changed  bool
	Duration time.Duration
	Err      error
}

// ChangeLogger records wrapper operations.
type ChangeLogger interface {
	LogChange(ChangeLogEvent)
}

// ChangeLoggerFunc adapts a function to ChangeLogger.
type ChangeLoggerFunc func(ChangeLogEvent)

// LogChange implements ChangeLogger.
func (f ChangeLoggerFunc) LogChange(event ChangeLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopChangeLogger struct{}

func (noopChangeLogger) LogChange(ChangeLogEvent) {}

// WithChangeLogger attaches a change logger to the wrapper.
func WithChangeLogger(logger ChangeLogger) Option {
	return func(cfg *wrapperConfig) {
		if logger == nil {
			cfg.logger = noopChangeLogger{}
			return
		}
		cfg.logger = logger
	}
}
