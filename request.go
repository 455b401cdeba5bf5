package bywhen

import (
	"context"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"sync"
)

// RequestType is the kind of interaction a Request carries.
type RequestType string

const (
	RequestEvent          RequestType = "event"
	RequestBlockAction    RequestType = "action"
	RequestSlashCommand   RequestType = "command"
	RequestViewSubmission RequestType = "view"
	RequestInteraction    RequestType = "interaction"
)

// An AckFunc acknowledges receipt of a request to Slack.
type AckFunc func(ctx context.Context) error

// NoAck is the AckFunc for transports where the acknowledgement is implicit, e.g. the HTTP response.
func NoAck(context.Context) error { return nil }

// A Request is an interaction received from Slack, independent of the transport (HTTP or Socket Mode) it arrived on.
type Request struct {
	Type        RequestType
	Event       slackevents.EventsAPIInnerEvent
	Interaction *slack.InteractionCallback
	Command     *slack.SlashCommand

	ack     AckFunc
	ackOnce sync.Once
	ackErr  error
}

// NewEventRequest returns a Request for an Events API event.
func NewEventRequest(event slackevents.EventsAPIInnerEvent, ack AckFunc) *Request {
	return &Request{Type: RequestEvent, Event: event, ack: ack}
}

// NewInteractionRequest returns a Request for an interactivity payload (block actions, view submissions, ...).
func NewInteractionRequest(callback slack.InteractionCallback, ack AckFunc) *Request {
	req := Request{Type: RequestInteraction, Interaction: &callback, ack: ack}
	switch callback.Type {
	case slack.InteractionTypeBlockActions:
		req.Type = RequestBlockAction
	case slack.InteractionTypeViewSubmission:
		req.Type = RequestViewSubmission
	}
	return &req
}

// NewCommandRequest returns a Request for a slash command.
func NewCommandRequest(command slack.SlashCommand, ack AckFunc) *Request {
	return &Request{Type: RequestSlashCommand, Command: &command, ack: ack}
}

// Trigger returns the tag used to look up the request's Handler, e.g. "command:/bywhen" or "action:button".
func (r *Request) Trigger() string {
	var name string
	switch r.Type {
	case RequestEvent:
		name = r.Event.Type
	case RequestBlockAction:
		if actions := r.Interaction.ActionCallback.BlockActions; len(actions) > 0 {
			name = actions[0].ActionID
		}
	case RequestViewSubmission:
		name = r.Interaction.View.CallbackID
	case RequestSlashCommand:
		name = r.Command.Command
	case RequestInteraction:
		name = string(r.Interaction.Type)
	}
	return string(r.Type) + ":" + name
}

// Ack acknowledges the request. Only the first call reaches Slack; later calls return the first call's result.
func (r *Request) Ack(ctx context.Context) error {
	r.ackOnce.Do(func() {
		if r.ack != nil {
			r.ackErr = r.ack(ctx)
		}
	})
	return r.ackErr
}
