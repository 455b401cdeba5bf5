package testutils

import (
	"bytes"
	"context"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"io"
	"net/http"
)

type FakeHandler struct {
	eventHandlers map[socketmode.EventType]socketmode.SocketmodeHandlerFunc
}

func (f *FakeHandler) RunEventLoopContext(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (f *FakeHandler) Handle(evt socketmode.EventType, h socketmode.SocketmodeHandlerFunc) {
	if f.eventHandlers == nil {
		f.eventHandlers = make(map[socketmode.EventType]socketmode.SocketmodeHandlerFunc)
	}
	f.eventHandlers[evt] = h
}

// SendEvent passes the event to the handler registered for the event's type.
func (f *FakeHandler) SendEvent(ev *socketmode.Event, c *socketmode.Client) {
	if h, ok := f.eventHandlers[ev.Type]; ok {
		h(ev, c)
	}
}

func (f *FakeHandler) Login() {
	f.eventHandlers[socketmode.EventTypeConnected](nil, nil)
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////

var _ http.RoundTripper = &StubbedRoundTripper{}

type StubbedRoundTripper struct{}

func (r StubbedRoundTripper) RoundTrip(_ *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewBufferString(``)),
	}, nil
}

// SocketModeClient returns a Socket Mode client that is never connected. Its acknowledgements are queued, not sent.
func SocketModeClient() *socketmode.Client {
	slackClient := slack.New("", slack.OptionHTTPClient(&http.Client{Transport: &StubbedRoundTripper{}}))
	return socketmode.New(slackClient)
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////

func AppHomeOpenedEvent(user, channel string) *socketmode.Event {
	return &socketmode.Event{
		Type:    socketmode.EventTypeEventsAPI,
		Request: &socketmode.Request{EnvelopeID: "envelope-1"},
		Data: slackevents.EventsAPIEvent{
			Type: slackevents.CallbackEvent,
			InnerEvent: slackevents.EventsAPIInnerEvent{
				Type: string(slackevents.AppHomeOpened),
				Data: &slackevents.AppHomeOpenedEvent{
					Type:    string(slackevents.AppHomeOpened),
					User:    user,
					Channel: channel,
					Tab:     "home",
				},
			},
		},
	}
}

func InteractionEvent(callback slack.InteractionCallback) *socketmode.Event {
	return &socketmode.Event{
		Type:    socketmode.EventTypeInteractive,
		Request: &socketmode.Request{EnvelopeID: "envelope-2"},
		Data:    callback,
	}
}

func SlashCommandEvent(command slack.SlashCommand) *socketmode.Event {
	return &socketmode.Event{
		Type:    socketmode.EventTypeSlashCommand,
		Request: &socketmode.Request{EnvelopeID: "envelope-3"},
		Data:    command,
	}
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// ButtonClicked returns the interaction Slack sends when a button in a view is clicked.
func ButtonClicked(user, actionID, viewID, hash string) slack.InteractionCallback {
	return slack.InteractionCallback{
		Type:           slack.InteractionTypeBlockActions,
		User:           slack.User{ID: user},
		View:           slack.View{ID: viewID, Hash: hash, Type: slack.VTHomeTab},
		ActionCallback: slack.ActionCallbacks{BlockActions: []*slack.BlockAction{{ActionID: actionID, Type: "button"}}},
	}
}

// ReminderSubmitted returns the interaction Slack sends when the reminder modal is submitted.
// Empty values are left out of the view's state.
func ReminderSubmitted(user, date, timeOfDay, description string) slack.InteractionCallback {
	values := map[string]map[string]slack.BlockAction{}
	if date != "" {
		values["input_when"] = map[string]slack.BlockAction{"when_input": {SelectedDate: date}}
	}
	if timeOfDay != "" {
		values["input_time"] = map[string]slack.BlockAction{"time_input": {SelectedOption: slack.OptionBlockObject{Value: timeOfDay}}}
	}
	if description != "" {
		values["input_description"] = map[string]slack.BlockAction{"description_input": {Value: description}}
	}
	return slack.InteractionCallback{
		Type: slack.InteractionTypeViewSubmission,
		User: slack.User{ID: user},
		View: slack.View{
			ID:         "V0001",
			Type:       slack.VTModal,
			CallbackID: "view_1",
			State:      &slack.ViewState{Values: values},
		},
	}
}
