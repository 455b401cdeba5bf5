package testutils

import (
	"context"
	"github.com/slack-go/slack"
	"sync"
)

// A CallLog records the order of calls made to fake clients and acknowledgements.
type CallLog struct {
	lock  sync.Mutex
	calls []string
}

func (l *CallLog) Record(call string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.calls = append(l.calls, call)
}

func (l *CallLog) Calls() []string {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]string(nil), l.calls...)
}

// Ack returns a function that records an acknowledgement as "ack" and returns err.
func (l *CallLog) Ack(err error) func(context.Context) error {
	return func(context.Context) error {
		l.Record("ack")
		return err
	}
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////

type Message struct {
	Channel string
	Text    string
}

type PublishedView struct {
	User string
	View slack.HomeTabViewRequest
}

type UpdatedView struct {
	ViewID string
	Hash   string
	View   slack.ModalViewRequest
}

type OpenedView struct {
	TriggerID string
	View      slack.ModalViewRequest
}

type Reminder struct {
	User string
	Text string
	Time string
}

// FakeSlackClient records the Slack API calls made to it. Errors, indexed by method name
// (e.g. "chat.postMessage"), makes the corresponding call fail.
type FakeSlackClient struct {
	*CallLog
	Errors map[string]error

	lock      sync.Mutex
	Messages  []Message
	Published []PublishedView
	Updated   []UpdatedView
	Opened    []OpenedView
	Reminders []Reminder
}

func NewFakeSlackClient(log *CallLog) *FakeSlackClient {
	if log == nil {
		log = &CallLog{}
	}
	return &FakeSlackClient{CallLog: log, Errors: make(map[string]error)}
}

func (f *FakeSlackClient) call(method string) error {
	f.Record(method)
	return f.Errors[method]
}

func (f *FakeSlackClient) AuthTestContext(_ context.Context) (*slack.AuthTestResponse, error) {
	if err := f.call("auth.test"); err != nil {
		return nil, err
	}
	return &slack.AuthTestResponse{Team: "team", TeamID: "T0001", User: "bywhen", UserID: "U0BOT"}, nil
}

func (f *FakeSlackClient) PostMessageContext(_ context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	if err := f.call("chat.postMessage"); err != nil {
		return "", "", err
	}
	_, values, err := slack.UnsafeApplyMsgOptions("", channelID, "", options...)
	if err != nil {
		return "", "", err
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	f.Messages = append(f.Messages, Message{Channel: channelID, Text: values.Get("text")})
	return channelID, "1700000000.000100", nil
}

func (f *FakeSlackClient) PublishViewContext(_ context.Context, userID string, view slack.HomeTabViewRequest, _ string) (*slack.ViewResponse, error) {
	if err := f.call("views.publish"); err != nil {
		return nil, err
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	f.Published = append(f.Published, PublishedView{User: userID, View: view})
	return &slack.ViewResponse{View: slack.View{ID: "VHOME", Type: view.Type}}, nil
}

func (f *FakeSlackClient) UpdateViewContext(_ context.Context, view slack.ModalViewRequest, _, hash, viewID string) (*slack.ViewResponse, error) {
	if err := f.call("views.update"); err != nil {
		return nil, err
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	f.Updated = append(f.Updated, UpdatedView{ViewID: viewID, Hash: hash, View: view})
	return &slack.ViewResponse{View: slack.View{ID: viewID, Type: view.Type}}, nil
}

func (f *FakeSlackClient) OpenViewContext(_ context.Context, triggerID string, view slack.ModalViewRequest) (*slack.ViewResponse, error) {
	if err := f.call("views.open"); err != nil {
		return nil, err
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	f.Opened = append(f.Opened, OpenedView{TriggerID: triggerID, View: view})
	return &slack.ViewResponse{View: slack.View{ID: "VMODAL", Type: view.Type, CallbackID: view.CallbackID}}, nil
}

func (f *FakeSlackClient) AddUserReminderContext(_ context.Context, userID, text, time string) (*slack.Reminder, error) {
	if err := f.call("reminders.add"); err != nil {
		return nil, err
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	f.Reminders = append(f.Reminders, Reminder{User: userID, Text: text, Time: time})
	return &slack.Reminder{ID: "Rm0001", User: userID, Text: text}, nil
}
