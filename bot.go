package bywhen

import (
	"context"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Triggers handled by the Bot.
const (
	TriggerHomeOpened        = string(RequestEvent) + ":" + string(slackevents.AppHomeOpened)
	TriggerButtonClicked     = string(RequestBlockAction) + ":" + ButtonActionID
	TriggerReminderCommand   = string(RequestSlashCommand) + ":" + ReminderCommand
	TriggerReminderSubmitted = string(RequestViewSubmission) + ":" + ReminderCallbackID
)

// ReminderCommand is the slash command that opens the reminder modal.
const ReminderCommand = "/bywhen"

// SlackClient is the part of the Slack Web API used by the Bot. *slack.Client implements it.
type SlackClient interface {
	AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	PublishViewContext(ctx context.Context, userID string, view slack.HomeTabViewRequest, hash string) (*slack.ViewResponse, error)
	UpdateViewContext(ctx context.Context, view slack.ModalViewRequest, externalID, hash, viewID string) (*slack.ViewResponse, error)
	OpenViewContext(ctx context.Context, triggerID string, view slack.ModalViewRequest) (*slack.ViewResponse, error)
}

// ReminderClient creates reminders. Slack only accepts reminders.add calls made with a user token,
// so this is typically a different *slack.Client than the Bot's SlackClient.
type ReminderClient interface {
	AddUserReminderContext(ctx context.Context, userID, text, time string) (*slack.Reminder, error)
}

var _ prometheus.Collector = &Bot{}

// A Bot processes Requests received from Slack: it greets users opening the app's home tab, reacts to the home
// tab's button and lets users create reminders through the /bywhen slash command.
//
// Bot is transport-agnostic. Requests reach it through ProcessEvent, either from an HTTP handler (see
// NewEventHandler) or over Socket Mode (see RunSocketMode).
type Bot struct {
	Handlers
	client    SlackClient
	reminders ReminderClient
	metrics   *metrics
	logger    *slog.Logger
}

// NewBot returns a Bot that calls the Slack API through client. If client also implements ReminderClient,
// it is used to create reminders, unless WithReminderClient specifies otherwise.
func NewBot(client SlackClient, options ...BotOptionFunc) *Bot {
	b := Bot{
		Handlers: make(Handlers),
		client:   client,
		metrics:  newMetrics(),
		logger:   slog.Default(),
	}
	if reminders, ok := client.(ReminderClient); ok {
		b.reminders = reminders
	}
	b.Handlers.Add(Handlers{
		TriggerHomeOpened:        HandlerFunc(b.onHomeOpened),
		TriggerButtonClicked:     HandlerFunc(b.onButtonClicked),
		TriggerReminderCommand:   HandlerFunc(b.onReminderCommand),
		TriggerReminderSubmitted: HandlerFunc(b.onReminderSubmitted),
	})
	for _, o := range options {
		o(&b)
	}
	return &b
}

// Authenticate checks the Bot's credentials with Slack and returns the bot's user ID.
func (b *Bot) Authenticate(ctx context.Context) (string, error) {
	auth, err := b.client.AuthTestContext(ctx)
	if err != nil {
		return "", errors.Wrap(err, "auth")
	}
	b.logger.Info("authenticated with Slack", "team", auth.Team, "user", auth.User)
	return auth.UserID, nil
}

// ProcessEvent dispatches the request to its Handler and logs the result.
//
// Handler failures are logged and counted, but not returned: the request has been acknowledged and there
// is nothing left for the caller to do. ProcessEvent only returns an error if the request could not be dispatched.
func (b *Bot) ProcessEvent(ctx context.Context, req *Request) (err error) {
	if req == nil {
		return errors.New("no request")
	}
	trigger := req.Trigger()
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("handler for %s panicked: %v", trigger, r)
		}
	}()

	start := time.Now()
	result := b.Handle(ctx, req)

	label := trigger
	if result.Outcome == OutcomeUnhandled {
		label = "other"
	}
	b.metrics.observe(label, result, time.Since(start))

	l := b.logger.With("trigger", trigger, "result", result)
	switch {
	case result.Outcome == OutcomeUnhandled:
		l.Debug("no handler for request")
	case !result.Failed():
		l.Info("request processed")
	case result.Outcome == OutcomeAckFailed:
		l.Warn("failed to acknowledge request. interaction abandoned")
	default:
		l.Error("failed to process request")
	}
	return nil
}

// RunSocketMode connects app to Slack and processes all requests it receives, each in its own goroutine.
// It returns when ctx is cancelled or the connection fails.
func (b *Bot) RunSocketMode(ctx context.Context, app *SlackApp) error {
	b.logger.Info("starting Bot", "triggers", b.Triggers())
	defer b.logger.Debug("shutting down Bot")
	errCh := make(chan error, 1)
	go func() { errCh <- app.Run(ctx) }()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err != nil {
				err = errors.Wrap(err, "slackapp failed")
			}
			return err
		case req := <-app.Requests:
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := b.ProcessEvent(ctx, req); err != nil {
					b.logger.Error("failed to dispatch request", "err", err)
				}
			}()
		}
	}
}

func (b *Bot) Describe(ch chan<- *prometheus.Desc) {
	b.metrics.Describe(ch)
}

func (b *Bot) Collect(ch chan<- prometheus.Metric) {
	b.metrics.Collect(ch)
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////

func (b *Bot) onHomeOpened(ctx context.Context, req *Request) Result {
	if err := req.Ack(ctx); err != nil {
		return failed(OutcomeAckFailed, err)
	}
	event, ok := req.Event.Data.(*slackevents.AppHomeOpenedEvent)
	if !ok {
		return failed(OutcomeActionFailed, errors.Errorf("unexpected event data: %T", req.Event.Data))
	}
	user := slog.String("user", event.User)

	// the greeting is best effort: the home view is published even if it fails
	greetErr := b.greet(ctx, event)
	if _, err := b.client.PublishViewContext(ctx, event.User, HomeView(), ""); err != nil {
		return failed(OutcomeActionFailed, errors.Wrap(err, "publish home view"), user)
	}
	if greetErr != nil {
		return failed(OutcomeActionFailed, errors.Wrap(greetErr, "post greeting"), user)
	}
	return succeeded(user)
}

func (b *Bot) greet(ctx context.Context, event *slackevents.AppHomeOpenedEvent) error {
	greeting, err := greetingMessage(event.User)
	if err != nil {
		return err
	}
	channel := event.Channel
	if channel == "" {
		channel = event.User
	}
	_, _, err = b.client.PostMessageContext(ctx, channel, slack.MsgOptionText(greeting, false))
	return err
}

func (b *Bot) onButtonClicked(ctx context.Context, req *Request) Result {
	if err := req.Ack(ctx); err != nil {
		return failed(OutcomeAckFailed, err)
	}
	view := req.Interaction.View
	if _, err := b.client.UpdateViewContext(ctx, HomeViewAfterClick(), "", view.Hash, view.ID); err != nil {
		return failed(OutcomeActionFailed, errors.Wrap(err, "update home view"), slog.String("view_id", view.ID))
	}
	return succeeded(slog.String("user", req.Interaction.User.ID), slog.String("view_id", view.ID))
}

func (b *Bot) onReminderCommand(ctx context.Context, req *Request) Result {
	if err := req.Ack(ctx); err != nil {
		return failed(OutcomeAckFailed, err)
	}
	resp, err := b.client.OpenViewContext(ctx, req.Command.TriggerID, ReminderModal(TimeSlots()))
	if err != nil {
		return failed(OutcomeActionFailed, errors.Wrap(err, "open reminder modal"), slog.String("user", req.Command.UserID))
	}
	return succeeded(slog.String("user", req.Command.UserID), slog.String("view_id", resp.View.ID))
}

func (b *Bot) onReminderSubmitted(ctx context.Context, req *Request) Result {
	if err := req.Ack(ctx); err != nil {
		return failed(OutcomeAckFailed, err)
	}
	reminder, err := reminderFromSubmission(req.Interaction)
	if err != nil {
		return failed(OutcomeActionFailed, err, slog.String("user", req.Interaction.User.ID))
	}
	attrs := []slog.Attr{slog.String("user", reminder.User), slog.String("time", reminder.Time)}

	if b.reminders == nil {
		return failed(OutcomeActionFailed, errors.New("no reminder client configured"), attrs...)
	}
	created, err := b.reminders.AddUserReminderContext(ctx, reminder.User, reminder.Text, reminder.Time)
	if err != nil {
		return failed(OutcomeActionFailed, errors.Wrap(err, "add reminder"), attrs...)
	}
	if created != nil {
		attrs = append(attrs, slog.String("reminder_id", created.ID))
	}

	// the reminder exists from here on. If the confirmation fails, the user is not told about it.
	if err = b.confirm(ctx, reminder); err != nil {
		return failed(OutcomeNotifyFailed, errors.Wrap(err, "post confirmation"), attrs...)
	}
	return succeeded(attrs...)
}

func (b *Bot) confirm(ctx context.Context, reminder ReminderRequest) error {
	text, err := confirmationMessage(reminder.Text)
	if err != nil {
		return err
	}
	_, _, err = b.client.PostMessageContext(ctx, reminder.User, slack.MsgOptionText(text, false))
	return err
}

// reminderFromSubmission extracts the reminder from a submitted reminder modal.
// The description may be empty. The date and time may not.
func reminderFromSubmission(callback *slack.InteractionCallback) (ReminderRequest, error) {
	if callback.View.State == nil {
		return ReminderRequest{}, errors.New("submission has no state")
	}
	values := callback.View.State.Values
	date := values[WhenBlockID][WhenActionID].SelectedDate
	timeOfDay := values[TimeBlockID][TimeActionID].SelectedOption.Value
	description := values[DescriptionBlockID][DescriptionAction].Value

	var missing []string
	if date == "" {
		missing = append(missing, "date")
	}
	if timeOfDay == "" {
		missing = append(missing, "time")
	}
	if len(missing) > 0 {
		return ReminderRequest{}, errors.Errorf("submission is missing %s", strings.Join(missing, " and "))
	}
	return NewReminderRequest(callback.User.ID, date, timeOfDay, description)
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////

type BotOptionFunc func(*Bot)

func WithLogger(logger *slog.Logger) BotOptionFunc {
	return func(bot *Bot) {
		bot.logger = logger
	}
}

func WithHandler(trigger string, handler Handler) BotOptionFunc {
	return func(bot *Bot) {
		bot.Handlers[trigger] = handler
	}
}

// WithReminderClient sets the client used to create reminders.
func WithReminderClient(client ReminderClient) BotOptionFunc {
	return func(bot *Bot) {
		bot.reminders = client
	}
}
