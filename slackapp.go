package bywhen

import (
	"context"
	"github.com/pkg/errors"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"log/slog"
	"sync/atomic"
)

// A SlackApp receives requests from Slack using Socket Mode. It connects to Slack, listens for incoming events,
// interactions and slash commands, and makes them available on the Requests channel.
//
// Requests are not acknowledged by SlackApp: that is left to the request's Handler (see Request.Ack).
type SlackApp struct {
	*socketmode.Client
	Requests chan *Request
	socketModeHandler
	logger    *slog.Logger
	connected atomic.Bool
}

type socketModeHandler interface {
	RunEventLoopContext(ctx context.Context) error
	Handle(socketmode.EventType, socketmode.SocketmodeHandlerFunc)
}

// NewSlackApp creates a new SlackApp for the slack client. The client must be configured with an app-level token.
func NewSlackApp(client *slack.Client, logger *slog.Logger) *SlackApp {
	smc := socketmode.New(client)
	return newSlackAppWithSocketModeHandler(smc, socketmode.NewSocketmodeHandler(smc), logger)
}

func newSlackAppWithSocketModeHandler(client *socketmode.Client, handler socketModeHandler, logger *slog.Logger) *SlackApp {
	app := SlackApp{
		Client:            client,
		Requests:          make(chan *Request),
		socketModeHandler: handler,
		logger:            logger,
	}
	app.socketModeHandler.Handle(socketmode.EventTypeConnecting, app.onConnecting)
	app.socketModeHandler.Handle(socketmode.EventTypeConnectionError, app.onConnectionError)
	app.socketModeHandler.Handle(socketmode.EventTypeConnected, app.onConnected)
	app.socketModeHandler.Handle(socketmode.EventTypeIncomingError, app.onIncomingError)
	app.socketModeHandler.Handle(socketmode.EventTypeHello, app.onHello)
	app.socketModeHandler.Handle(socketmode.EventTypeDisconnect, app.onDisconnected)
	app.socketModeHandler.Handle(socketmode.EventTypeEventsAPI, app.onEvent)
	app.socketModeHandler.Handle(socketmode.EventTypeInteractive, app.onInteraction)
	app.socketModeHandler.Handle(socketmode.EventTypeSlashCommand, app.onSlashCommand)

	return &app
}

// Run starts the SlackApp. It connects to Slack and passes any received requests to the Requests channel.
func (h *SlackApp) Run(ctx context.Context) error {
	h.logger.Info("starting SlackApp")
	defer h.logger.Info("shutting down SlackApp")
	return h.socketModeHandler.RunEventLoopContext(ctx)
}

// Connected returns true if the SlackApp is connected to Slack.
func (h *SlackApp) Connected() bool {
	return h.connected.Load()
}

func (h *SlackApp) onConnecting(_ *socketmode.Event, _ *socketmode.Client) {
	h.logger.Debug("connecting to Slack ...")
}

func (h *SlackApp) onConnectionError(ev *socketmode.Event, _ *socketmode.Client) {
	reason := string(ev.Type)
	if ev.Request != nil {
		reason = ev.Request.Reason
	}
	h.logger.Error("failed to connect to Slack", "reason", reason)
}

func (h *SlackApp) onConnected(_ *socketmode.Event, _ *socketmode.Client) {
	h.connected.Store(true)
	h.logger.Info("connected to Slack")
}

func (h *SlackApp) onIncomingError(ev *socketmode.Event, _ *socketmode.Client) {
	var err *slack.IncomingEventError
	if e, ok := ev.Data.(error); ok && errors.As(e, &err) {
		h.logger.Warn("received incoming error", "err", err)
	} else {
		h.logger.Warn("received unexpected event type", "type", ev.Type)
	}
}

func (h *SlackApp) onHello(_ *socketmode.Event, _ *socketmode.Client) {
}

func (h *SlackApp) onDisconnected(_ *socketmode.Event, _ *socketmode.Client) {
	h.connected.Store(false)
	h.logger.Warn("disconnected from Slack")
}

func (h *SlackApp) onEvent(ev *socketmode.Event, client *socketmode.Client) {
	eventsAPIEvent, ok := ev.Data.(slackevents.EventsAPIEvent)
	if !ok {
		h.logger.Warn("received unexpected event type", "type", ev.Type)
		return
	}
	innerEvent := eventsAPIEvent.InnerEvent
	h.logger.Debug("event received", "type", innerEvent.Type)
	h.Requests <- NewEventRequest(innerEvent, h.ackFunc(ev, client))
}

func (h *SlackApp) onInteraction(ev *socketmode.Event, client *socketmode.Client) {
	callback, ok := ev.Data.(slack.InteractionCallback)
	if !ok {
		h.logger.Warn("received unexpected event type", "type", ev.Type)
		return
	}
	h.logger.Debug("interaction received", "type", callback.Type)
	h.Requests <- NewInteractionRequest(callback, h.ackFunc(ev, client))
}

func (h *SlackApp) onSlashCommand(ev *socketmode.Event, client *socketmode.Client) {
	command, ok := ev.Data.(slack.SlashCommand)
	if !ok {
		h.logger.Warn("received unexpected event type", "type", ev.Type)
		return
	}
	h.logger.Debug("slash command received", "command", command.Command)
	h.Requests <- NewCommandRequest(command, h.ackFunc(ev, client))
}

// ackFunc returns an AckFunc that acknowledges the envelope the event arrived in.
func (h *SlackApp) ackFunc(ev *socketmode.Event, client *socketmode.Client) AckFunc {
	return func(ctx context.Context) error {
		if ev.Request == nil {
			return errors.New("event has no envelope to acknowledge")
		}
		return errors.Wrap(client.AckCtx(ctx, ev.Request.EnvelopeID, nil), "ack")
	}
}
