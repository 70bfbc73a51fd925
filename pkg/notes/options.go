package notes

import "log/slog"

type options struct {
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*options)

func defaultOptions() options {
	return options{
		logger: slog.New(slog.DiscardHandler),
	}
}

// WithLogger sets the logger for the service and the graph engine beneath it.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
