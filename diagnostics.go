package auth

import (
	"context"
	"time"
)

// Diagnostic describes a denied sign-in attempt for backend observability.
// It carries the raw message and signature the client sent and never any
// credential the service itself holds.
type Diagnostic struct {
	Reason     DenialReason
	Message    string
	Signature  string
	Address    string
	Err        error
	OccurredAt time.Time
}

// DiagnosticsReporter receives denied sign-in attempts
type DiagnosticsReporter interface {
	Report(ctx context.Context, d Diagnostic)
}

// ReporterFunc adapts a function to the DiagnosticsReporter interface
type ReporterFunc func(ctx context.Context, d Diagnostic)

// Report implements DiagnosticsReporter
func (f ReporterFunc) Report(ctx context.Context, d Diagnostic) {
	if f == nil {
		return
	}
	f(ctx, d)
}

// LoggerReporter writes diagnostics to a Logger at warn level
type LoggerReporter struct {
	Logger Logger
}

// Report implements DiagnosticsReporter
func (r LoggerReporter) Report(_ context.Context, d Diagnostic) {
	args := []any{
		"reason", string(d.Reason),
		"message", d.Message,
		"signature", d.Signature,
	}
	if d.Address != "" {
		args = append(args, "address", d.Address)
	}
	if d.Err != nil {
		args = append(args, "error", d.Err)
	}
	normalizeLogger(r.Logger).Warn("sign-in denied", args...)
}

// MultiReporter fans a diagnostic out to every reporter
type MultiReporter []DiagnosticsReporter

// Report implements DiagnosticsReporter
func (m MultiReporter) Report(ctx context.Context, d Diagnostic) {
	for _, r := range m {
		if r != nil {
			r.Report(ctx, d)
		}
	}
}
