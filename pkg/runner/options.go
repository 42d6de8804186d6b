package runner

import (
	"log/slog"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.Logger = logger
		}
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithSessionID fixes the session id instead of generating one.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		r.SessionID = id
	}
}

// WithEndPoint selects the entry rule set by endpoint.
func WithEndPoint(endPoint string) Option {
	return func(r *Runner) {
		r.EndPoint = endPoint
	}
}

// WithContactAttributes sets the attributes sent with every request.
func WithContactAttributes(attrs map[string]string) Option {
	return func(r *Runner) {
		r.ContactAttributes = attrs
	}
}

// WithMaxResumes bounds consecutive resumes without an input request.
func WithMaxResumes(n int) Option {
	return func(r *Runner) {
		r.MaxResumes = n
	}
}
