package bywhen

import (
	"log/slog"
)

// Outcome classifies how a Handler's interaction ended.
type Outcome string

const (
	// OutcomeOK means the request was acknowledged and all its actions succeeded.
	OutcomeOK Outcome = "ok"
	// OutcomeUnhandled means no Handler is registered for the request's trigger. The request is still acknowledged.
	OutcomeUnhandled Outcome = "unhandled"
	// OutcomeAckFailed means the request could not be acknowledged. The interaction is abandoned.
	OutcomeAckFailed Outcome = "ack_failed"
	// OutcomeActionFailed means the request was acknowledged, but its action failed.
	OutcomeActionFailed Outcome = "action_failed"
	// OutcomeNotifyFailed means the action succeeded, but the user could not be told about it.
	OutcomeNotifyFailed Outcome = "notify_failed"
)

// A Result reports the outcome of a Handler.
type Result struct {
	Outcome Outcome
	Err     error
	// Attrs holds additional details to log with the result, e.g. the ID of a created reminder.
	Attrs []slog.Attr
}

// Failed returns true if the interaction did not complete.
func (r Result) Failed() bool {
	return r.Outcome != OutcomeOK && r.Outcome != OutcomeUnhandled
}

// LogValue implements slog.LogValuer.
func (r Result) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, 2+len(r.Attrs))
	attrs = append(attrs, slog.String("outcome", string(r.Outcome)))
	if r.Err != nil {
		attrs = append(attrs, slog.String("err", r.Err.Error()))
	}
	return slog.GroupValue(append(attrs, r.Attrs...)...)
}

func succeeded(attrs ...slog.Attr) Result {
	return Result{Outcome: OutcomeOK, Attrs: attrs}
}

func failed(outcome Outcome, err error, attrs ...slog.Attr) Result {
	return Result{Outcome: outcome, Err: err, Attrs: attrs}
}
