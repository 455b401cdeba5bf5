package bywhen

import (
	"context"
	"slices"
)

// A Handler processes one kind of Request.
//
// Handlers acknowledge the request before doing any other work and report failures in the returned Result.
type Handler interface {
	Handle(context.Context, *Request) Result
}

// HandlerFunc is an adapter that allows a function to be used as a Handler
type HandlerFunc func(context.Context, *Request) Result

// Handle calls f(ctx, req)
func (f HandlerFunc) Handle(ctx context.Context, req *Request) Result {
	return f(ctx, req)
}

var _ Handler = Handlers{}

// Handlers is the dispatch table: it maps a request's trigger (see Request.Trigger) to the Handler processing it.
//
// Handlers itself implements Handler. Requests without a registered Handler are acknowledged, so Slack does
// not redeliver them, and reported as OutcomeUnhandled.
type Handlers map[string]Handler

func (h Handlers) Handle(ctx context.Context, req *Request) Result {
	if handler, ok := h[req.Trigger()]; ok {
		return handler.Handle(ctx, req)
	}
	if err := req.Ack(ctx); err != nil {
		return failed(OutcomeAckFailed, err)
	}
	return Result{Outcome: OutcomeUnhandled}
}

// Triggers returns a sorted list of all supported triggers.
func (h Handlers) Triggers() []string {
	triggers := make([]string, 0, len(h))
	for trigger := range h {
		triggers = append(triggers, trigger)
	}
	slices.Sort(triggers)
	return triggers
}

// Add adds one or more handlers, replacing any existing handler for the same trigger.
func (h Handlers) Add(handlers Handlers) {
	for trigger, handler := range handlers {
		h[trigger] = handler
	}
}
