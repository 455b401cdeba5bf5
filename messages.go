package bywhen

import (
	"bytes"
	"github.com/Masterminds/sprig"
	"github.com/pkg/errors"
	"text/template"
)

var messageTemplates = template.Must(template.New("messages").Funcs(sprig.TxtFuncMap()).Parse(`
{{- define "greeting" }}Hello world and <@{{ .User }}>! {{ end }}
{{- define "reminder" }}Reminder: {{ .Description }}
When: {{ .Date }} at {{ .Time }}{{ end }}
{{- define "reminder_time" }}{{ list .Date .Time | join " " }}{{ end }}
{{- define "confirmation" }}Reminder set!
{{ .Text }}{{ end }}
`))

func renderMessage(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := messageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", errors.Wrapf(err, "error rendering %s message", name)
	}
	return buf.String(), nil
}

func greetingMessage(userID string) (string, error) {
	return renderMessage("greeting", struct{ User string }{User: userID})
}

func confirmationMessage(reminderText string) (string, error) {
	return renderMessage("confirmation", struct{ Text string }{Text: reminderText})
}

// A ReminderRequest holds everything needed to create a reminder in Slack.
type ReminderRequest struct {
	// User is the ID of the user to remind.
	User string
	// Text is the reminder's message.
	Text string
	// Time is when to remind the user, as "<date> <time>", e.g. "2024-05-01 3:00 PM".
	Time string
}

// NewReminderRequest builds the ReminderRequest for a submitted reminder form.
func NewReminderRequest(userID, date, timeOfDay, description string) (ReminderRequest, error) {
	data := struct{ Date, Time, Description string }{
		Date:        date,
		Time:        timeOfDay,
		Description: description,
	}
	text, err := renderMessage("reminder", data)
	if err != nil {
		return ReminderRequest{}, err
	}
	when, err := renderMessage("reminder_time", data)
	if err != nil {
		return ReminderRequest{}, err
	}
	return ReminderRequest{
		User: userID,
		Text: text,
		Time: when,
	}, nil
}
