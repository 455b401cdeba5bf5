package bywhen

import (
	"context"
	"encoding/json"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// An EventProcessor processes a Request received from Slack. Bot implements it.
type EventProcessor interface {
	ProcessEvent(ctx context.Context, req *Request) error
}

var _ EventProcessor = &Bot{}

// eventHandler is the HTTP entry point for Slack: it answers Slack's URL verification handshake and passes
// all other payloads to an EventProcessor.
type eventHandler struct {
	processor EventProcessor
	logger    *slog.Logger
}

// NewEventHandler returns an http.Handler that accepts Events API, interactivity and slash command payloads
// and passes them to processor.
//
// Only POST requests are accepted: all other methods get a 404. Payloads that cannot be decoded or processed
// get a 500. Requests are not verified: use a SignatureVerificationFilter for that.
func NewEventHandler(processor EventProcessor, logger *slog.Logger) http.Handler {
	return &eventHandler{
		processor: processor,
		logger:    logger,
	}
}

func (h *eventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	defer func() { _ = r.Body.Close() }()
	l := h.logger.With("request_id", uuid.NewString())

	var req *Request
	var err error
	if isForm(r) {
		req, err = decodeForm(r)
	} else {
		var event slackevents.EventsAPIEvent
		if event, err = decodeEvent(r); err == nil {
			switch event.Type {
			case slackevents.URLVerification:
				h.challenge(w, event, l)
				return
			case slackevents.CallbackEvent:
				req = NewEventRequest(event.InnerEvent, NoAck)
			default:
				l.Debug("ignoring event", "type", event.Type)
				w.WriteHeader(http.StatusOK)
				return
			}
		}
	}
	if err != nil {
		l.Error("failed to decode request", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	l.Debug("request received", "trigger", req.Trigger())
	if err = h.processor.ProcessEvent(r.Context(), req); err != nil {
		l.Error("failed to process request", "trigger", req.Trigger(), "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *eventHandler) challenge(w http.ResponseWriter, event slackevents.EventsAPIEvent, l *slog.Logger) {
	verification, ok := event.Data.(*slackevents.EventsAPIURLVerificationEvent)
	if !ok {
		l.Error("invalid url verification request", "type", event.Type)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	body, err := json.Marshal(struct {
		Challenge string `json:"challenge"`
	}{Challenge: verification.Challenge})
	if err != nil {
		l.Error("failed to encode url verification response", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	l.Info("answering url verification request")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// decodeEvent parses an Events API envelope. A callback event whose inner type the SDK does not know is
// returned with only its type set (the inner type), so it is acknowledged and ignored rather than reported as an error.
func decodeEvent(r *http.Request) (slackevents.EventsAPIEvent, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return slackevents.EventsAPIEvent{}, errors.Wrap(err, "read body")
	}
	event, err := slackevents.ParseEvent(body, slackevents.OptionNoVerifyToken())
	if err != nil {
		if isUnknownInnerEvent(event) {
			return slackevents.EventsAPIEvent{Type: event.Type}, nil
		}
		return slackevents.EventsAPIEvent{}, errors.Wrap(err, "parse event")
	}
	return event, nil
}

// isUnknownInnerEvent reports whether ParseEvent failed only because the callback's inner event type has no
// mapping: the outer envelope decoded, but no event data was attached.
func isUnknownInnerEvent(event slackevents.EventsAPIEvent) bool {
	return event.Data == nil && event.Type != "" && event.Type != "unmarshalling_error"
}

func isForm(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
}

// decodeForm decodes an interactivity payload (a form with a "payload" field holding JSON) or a slash command.
func decodeForm(r *http.Request) (*Request, error) {
	if err := r.ParseForm(); err != nil {
		return nil, errors.Wrap(err, "parse form")
	}
	if payload := r.PostForm.Get("payload"); payload != "" {
		var callback slack.InteractionCallback
		if err := json.Unmarshal([]byte(payload), &callback); err != nil {
			return nil, errors.Wrap(err, "parse interaction payload")
		}
		return NewInteractionRequest(callback, NoAck), nil
	}
	if r.PostForm.Get("command") != "" {
		command, err := slack.SlashCommandParse(r)
		if err != nil {
			return nil, errors.Wrap(err, "parse slash command")
		}
		return NewCommandRequest(command, NoAck), nil
	}
	return nil, errors.New("form contains neither an interaction payload nor a slash command")
}
