package bywhen

import (
	"bytes"
	"context"
	"github.com/clambin/bywhen/internal/testutils"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestBot_HomeOpened(t *testing.T) {
	tests := []struct {
		name      string
		channel   string
		errors    map[string]error
		want      Outcome
		wantCalls []string
	}{
		{
			name:      "success",
			channel:   "D0001",
			want:      OutcomeOK,
			wantCalls: []string{"ack", "chat.postMessage", "views.publish"},
		},
		{
			name:      "greeting fails",
			channel:   "D0001",
			errors:    map[string]error{"chat.postMessage": errors.New("channel_not_found")},
			want:      OutcomeActionFailed,
			wantCalls: []string{"ack", "chat.postMessage", "views.publish"},
		},
		{
			name:      "publish fails",
			channel:   "D0001",
			errors:    map[string]error{"views.publish": errors.New("invalid_blocks")},
			want:      OutcomeActionFailed,
			wantCalls: []string{"ack", "chat.postMessage", "views.publish"},
		},
		{
			name:      "ack fails",
			channel:   "D0001",
			errors:    map[string]error{"ack": errors.New("closed")},
			want:      OutcomeAckFailed,
			wantCalls: []string{"ack"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var log testutils.CallLog
			client := testutils.NewFakeSlackClient(&log)
			for method, err := range tt.errors {
				client.Errors[method] = err
			}
			b := NewBot(client, WithLogger(discard))

			ev := slackevents.EventsAPIInnerEvent{
				Type: string(slackevents.AppHomeOpened),
				Data: &slackevents.AppHomeOpenedEvent{User: "U0001", Channel: tt.channel, Tab: "home"},
			}
			result := b.Handle(context.Background(), NewEventRequest(ev, log.Ack(tt.errors["ack"])))
			assert.Equal(t, tt.want, result.Outcome, result.Err)
			assert.Equal(t, tt.wantCalls, log.Calls())

			if tt.want == OutcomeAckFailed {
				return
			}
			require.Len(t, client.Published, 1)
			assert.Equal(t, "U0001", client.Published[0].User)
			assert.Equal(t, HomeView(), client.Published[0].View)
			if tt.errors["chat.postMessage"] == nil {
				require.Len(t, client.Messages, 1)
				assert.Equal(t, testutils.Message{Channel: "D0001", Text: "Hello world and <@U0001>! "}, client.Messages[0])
			}
		})
	}
}

func TestBot_HomeOpened_NoChannel(t *testing.T) {
	client := testutils.NewFakeSlackClient(nil)
	b := NewBot(client, WithLogger(discard))

	ev := slackevents.EventsAPIInnerEvent{
		Type: string(slackevents.AppHomeOpened),
		Data: &slackevents.AppHomeOpenedEvent{User: "U0001"},
	}
	result := b.Handle(context.Background(), NewEventRequest(ev, NoAck))
	require.Equal(t, OutcomeOK, result.Outcome)
	require.Len(t, client.Messages, 1)
	assert.Equal(t, "U0001", client.Messages[0].Channel)
}

func TestBot_ButtonClicked(t *testing.T) {
	tests := []struct {
		name      string
		errors    map[string]error
		want      Outcome
		wantCalls []string
	}{
		{
			name:      "success",
			want:      OutcomeOK,
			wantCalls: []string{"ack", "views.update"},
		},
		{
			name:      "update fails",
			errors:    map[string]error{"views.update": errors.New("hash_conflict")},
			want:      OutcomeActionFailed,
			wantCalls: []string{"ack", "views.update"},
		},
		{
			name:      "ack fails",
			errors:    map[string]error{"ack": errors.New("closed")},
			want:      OutcomeAckFailed,
			wantCalls: []string{"ack"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var log testutils.CallLog
			client := testutils.NewFakeSlackClient(&log)
			for method, err := range tt.errors {
				client.Errors[method] = err
			}
			b := NewBot(client, WithLogger(discard))

			req := NewInteractionRequest(testutils.ButtonClicked("U0001", ButtonActionID, "VHOME", "hash-1"), log.Ack(tt.errors["ack"]))
			result := b.Handle(context.Background(), req)
			assert.Equal(t, tt.want, result.Outcome, result.Err)
			// the acknowledgement always precedes the update
			assert.Equal(t, tt.wantCalls, log.Calls())

			if tt.want == OutcomeOK {
				require.Len(t, client.Updated, 1)
				assert.Equal(t, testutils.UpdatedView{ViewID: "VHOME", Hash: "hash-1", View: HomeViewAfterClick()}, client.Updated[0])
			}
		})
	}
}

func TestBot_ReminderCommand(t *testing.T) {
	tests := []struct {
		name      string
		errors    map[string]error
		want      Outcome
		wantCalls []string
	}{
		{
			name:      "success",
			want:      OutcomeOK,
			wantCalls: []string{"ack", "views.open"},
		},
		{
			name:      "open fails",
			errors:    map[string]error{"views.open": errors.New("expired_trigger_id")},
			want:      OutcomeActionFailed,
			wantCalls: []string{"ack", "views.open"},
		},
		{
			name:      "ack fails",
			errors:    map[string]error{"ack": errors.New("closed")},
			want:      OutcomeAckFailed,
			wantCalls: []string{"ack"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var log testutils.CallLog
			client := testutils.NewFakeSlackClient(&log)
			for method, err := range tt.errors {
				client.Errors[method] = err
			}
			b := NewBot(client, WithLogger(discard))

			cmd := slack.SlashCommand{Command: ReminderCommand, UserID: "U0001", TriggerID: "trigger-1"}
			result := b.Handle(context.Background(), NewCommandRequest(cmd, log.Ack(tt.errors["ack"])))
			assert.Equal(t, tt.want, result.Outcome, result.Err)
			assert.Equal(t, tt.wantCalls, log.Calls())

			if tt.want == OutcomeOK {
				require.Len(t, client.Opened, 1)
				assert.Equal(t, "trigger-1", client.Opened[0].TriggerID)
				assert.Equal(t, ReminderModal(TimeSlots()), client.Opened[0].View)
			}
		})
	}
}

func TestBot_ReminderSubmitted(t *testing.T) {
	tests := []struct {
		name          string
		submission    slack.InteractionCallback
		errors        map[string]error
		want          Outcome
		wantCalls     []string
		wantReminders []testutils.Reminder
		wantMessages  []testutils.Message
	}{
		{
			name:       "success",
			submission: testutils.ReminderSubmitted("U0001", "2024-05-01", "3:00 PM", "Call dentist"),
			want:       OutcomeOK,
			wantCalls:  []string{"ack", "reminders.add", "chat.postMessage"},
			wantReminders: []testutils.Reminder{{
				User: "U0001",
				Text: "Reminder: Call dentist\nWhen: 2024-05-01 at 3:00 PM",
				Time: "2024-05-01 3:00 PM",
			}},
			wantMessages: []testutils.Message{{
				Channel: "U0001",
				Text:    "Reminder set!\nReminder: Call dentist\nWhen: 2024-05-01 at 3:00 PM",
			}},
		},
		{
			name:       "reminder fails",
			submission: testutils.ReminderSubmitted("U0001", "2024-05-01", "3:00 PM", "Call dentist"),
			errors:     map[string]error{"reminders.add": errors.New("cannot_parse")},
			want:       OutcomeActionFailed,
			wantCalls:  []string{"ack", "reminders.add"},
		},
		{
			name:       "confirmation fails",
			submission: testutils.ReminderSubmitted("U0001", "2024-05-01", "3:00 PM", "Call dentist"),
			errors:     map[string]error{"chat.postMessage": errors.New("channel_not_found")},
			want:       OutcomeNotifyFailed,
			wantCalls:  []string{"ack", "reminders.add", "chat.postMessage"},
			wantReminders: []testutils.Reminder{{
				User: "U0001",
				Text: "Reminder: Call dentist\nWhen: 2024-05-01 at 3:00 PM",
				Time: "2024-05-01 3:00 PM",
			}},
		},
		{
			name:       "missing time",
			submission: testutils.ReminderSubmitted("U0001", "2024-05-01", "", "Call dentist"),
			want:       OutcomeActionFailed,
			wantCalls:  []string{"ack"},
		},
		{
			name:       "ack fails",
			submission: testutils.ReminderSubmitted("U0001", "2024-05-01", "3:00 PM", "Call dentist"),
			errors:     map[string]error{"ack": errors.New("closed")},
			want:       OutcomeAckFailed,
			wantCalls:  []string{"ack"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var log testutils.CallLog
			client := testutils.NewFakeSlackClient(&log)
			for method, err := range tt.errors {
				client.Errors[method] = err
			}
			b := NewBot(client, WithLogger(discard))

			result := b.Handle(context.Background(), NewInteractionRequest(tt.submission, log.Ack(tt.errors["ack"])))
			assert.Equal(t, tt.want, result.Outcome, result.Err)
			assert.Equal(t, tt.wantCalls, log.Calls())
			assert.Equal(t, tt.wantReminders, client.Reminders)
			assert.Equal(t, tt.wantMessages, client.Messages)
		})
	}
}

func TestBot_SeparateReminderClient(t *testing.T) {
	var log testutils.CallLog
	botClient := testutils.NewFakeSlackClient(&log)
	userClient := testutils.NewFakeSlackClient(&log)
	b := NewBot(botClient, WithLogger(discard), WithReminderClient(userClient))

	req := NewInteractionRequest(testutils.ReminderSubmitted("U0001", "2024-05-01", "3:00 PM", "Call dentist"), NoAck)
	result := b.Handle(context.Background(), req)
	require.Equal(t, OutcomeOK, result.Outcome, result.Err)
	assert.Empty(t, botClient.Reminders)
	assert.Len(t, userClient.Reminders, 1)
	assert.Len(t, botClient.Messages, 1)
}

func Test_reminderFromSubmission(t *testing.T) {
	tests := []struct {
		name     string
		callback slack.InteractionCallback
		wantErr  string
	}{
		{
			name:     "complete",
			callback: testutils.ReminderSubmitted("U0001", "2024-05-01", "3:00 PM", "Call dentist"),
		},
		{
			name:     "no description",
			callback: testutils.ReminderSubmitted("U0001", "2024-05-01", "3:00 PM", ""),
		},
		{
			name:     "no date and time",
			callback: testutils.ReminderSubmitted("U0001", "", "", "Call dentist"),
			wantErr:  "submission is missing date and time",
		},
		{
			name:     "no state",
			callback: slack.InteractionCallback{Type: slack.InteractionTypeViewSubmission},
			wantErr:  "submission has no state",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reminderFromSubmission(&tt.callback)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestBot_ProcessEvent(t *testing.T) {
	client := testutils.NewFakeSlackClient(nil)
	client.Errors["chat.postMessage"] = errors.New("channel_not_found")
	b := NewBot(client,
		WithLogger(discard),
		WithHandler("command:/panic", HandlerFunc(func(context.Context, *Request) Result { panic("boom") })),
	)

	ctx := context.Background()
	submission := testutils.ReminderSubmitted("U0001", "2024-05-01", "3:00 PM", "Call dentist")
	assert.NoError(t, b.ProcessEvent(ctx, NewInteractionRequest(submission, NoAck)))
	assert.NoError(t, b.ProcessEvent(ctx, NewCommandRequest(slack.SlashCommand{Command: ReminderCommand}, NoAck)))
	assert.NoError(t, b.ProcessEvent(ctx, NewCommandRequest(slack.SlashCommand{Command: "/later"}, NoAck)))
	assert.Error(t, b.ProcessEvent(ctx, NewCommandRequest(slack.SlashCommand{Command: "/panic"}, NoAck)))
	assert.Error(t, b.ProcessEvent(ctx, nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(b.metrics.requests.WithLabelValues(TriggerReminderSubmitted, string(OutcomeNotifyFailed))))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.metrics.requests.WithLabelValues(TriggerReminderCommand, string(OutcomeOK))))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.metrics.requests.WithLabelValues("other", string(OutcomeUnhandled))))
	assert.Equal(t, 3, testutil.CollectAndCount(b, "bywhen_requests_total"))
}

func TestBot_Authenticate(t *testing.T) {
	client := testutils.NewFakeSlackClient(nil)
	b := NewBot(client, WithLogger(discard))

	userID, err := b.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "U0BOT", userID)

	client.Errors["auth.test"] = errors.New("invalid_auth")
	_, err = b.Authenticate(context.Background())
	assert.Error(t, err)
}

func TestBot_ProcessEvent_Logging(t *testing.T) {
	tests := []struct {
		name      string
		command   string
		result    Result
		wantLevel string
	}{
		{name: "ok", command: "/ok", result: succeeded(), wantLevel: "level=INFO"},
		{name: "unhandled", command: "/unknown", wantLevel: "level=DEBUG"},
		{name: "ack failed", command: "/ack", result: failed(OutcomeAckFailed, errors.New("closed")), wantLevel: "level=WARN"},
		{name: "action failed", command: "/action", result: failed(OutcomeActionFailed, errors.New("fail")), wantLevel: "level=ERROR"},
		{name: "notify failed", command: "/notify", result: failed(OutcomeNotifyFailed, errors.New("fail")), wantLevel: "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			l := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))
			b := NewBot(testutils.NewFakeSlackClient(nil), WithLogger(l))
			if tt.command != "/unknown" {
				b.Handlers["command:"+tt.command] = HandlerFunc(func(context.Context, *Request) Result { return tt.result })
			}

			require.NoError(t, b.ProcessEvent(context.Background(), NewCommandRequest(slack.SlashCommand{Command: tt.command}, NoAck)))
			assert.Contains(t, out.String(), tt.wantLevel)
		})
	}
}

func TestBot_RunSocketMode(t *testing.T) {
	var log testutils.CallLog
	client := testutils.NewFakeSlackClient(&log)
	var out bytes.Buffer
	b := NewBot(client, WithLogger(slog.New(slog.NewTextHandler(&out, nil))))

	var h testutils.FakeHandler
	app := newSlackAppWithSocketModeHandler(nil, &h, discard)

	errCh := make(chan error)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { errCh <- b.RunSocketMode(ctx, app) }()

	smClient := testutils.SocketModeClient()
	go h.SendEvent(testutils.SlashCommandEvent(slack.SlashCommand{Command: ReminderCommand, TriggerID: "trigger-1"}), smClient)

	assert.Eventually(t, func() bool {
		return slices.Contains(log.Calls(), "views.open")
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-errCh)
	assert.Equal(t, []string{"views.open"}, log.Calls())
	require.Len(t, client.Opened, 1)
	assert.Equal(t, "trigger-1", client.Opened[0].TriggerID)
	// supported triggers are logged at startup
	assert.Contains(t, out.String(), `triggers="[action:button command:/bywhen event:app_home_opened view:view_1]"`)
}
