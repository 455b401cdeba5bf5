package bywhen

import (
	"github.com/slack-go/slack"
)

// Identifiers of the views and their interactive elements. Incoming interactions are routed on these.
const (
	HomeCallbackID     = "home_view"
	ButtonActionID     = "button"
	ReminderCallbackID = "view_1"

	WhenBlockID        = "input_when"
	WhenActionID       = "when_input"
	TimeBlockID        = "input_time"
	TimeActionID       = "time_input"
	DescriptionBlockID = "input_description"
	DescriptionAction  = "description_input"
)

// HomeView returns the home tab shown when a user opens the app.
func HomeView() slack.HomeTabViewRequest {
	return slack.HomeTabViewRequest{
		Type:       slack.VTHomeTab,
		CallbackID: HomeCallbackID,
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			slack.NewSectionBlock(markdown("*Welcome to your _App's Home_* :tada:"), nil, nil),
			slack.NewDividerBlock(),
			slack.NewSectionBlock(markdown("Use `/bywhen` in any channel to set yourself a reminder. The button below doesn't do much: clicking it replaces this view."), nil, nil),
			slack.NewActionBlock("",
				slack.NewButtonBlockElement(ButtonActionID, "", plainText("Click me!")),
			),
		}},
	}
}

// HomeViewAfterClick returns the home tab that replaces HomeView once its button is clicked.
//
// Slack's views.update takes a ModalViewRequest for all view types, so the home tab is returned as one.
func HomeViewAfterClick() slack.ModalViewRequest {
	return slack.ModalViewRequest{
		Type:       slack.VTHomeTab,
		CallbackID: HomeCallbackID,
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			slack.NewSectionBlock(markdown("`THE BUTTON WAS CLICKED` :white_check_mark: "), nil, nil),
		}},
	}
}

// ReminderModal returns the modal that collects a reminder's date, time and description.
// The time select offers one option per slot, in the order given.
func ReminderModal(slots []TimeSlot) slack.ModalViewRequest {
	options := make([]*slack.OptionBlockObject, 0, len(slots))
	for _, slot := range slots {
		options = append(options, slack.NewOptionBlockObject(slot.Value, plainText(slot.Label), nil))
	}

	description := slack.NewPlainTextInputBlockElement(nil, DescriptionAction)
	description.Multiline = true

	return slack.ModalViewRequest{
		Type:       slack.VTModal,
		CallbackID: ReminderCallbackID,
		Title:      plainText("Create a Reminder"),
		Submit:     plainText("Submit"),
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			slack.NewSectionBlock(markdown("Please provide the details for the reminder:"), nil, nil),
			slack.NewInputBlock(WhenBlockID, plainText("When?"), nil, slack.NewDatePickerBlockElement(WhenActionID)),
			slack.NewInputBlock(TimeBlockID, plainText("Time?"), nil, slack.NewOptionsSelectBlockElement(slack.OptTypeStatic, nil, TimeActionID, options...)),
			slack.NewInputBlock(DescriptionBlockID, plainText("Description"), nil, description),
		}},
	}
}

func markdown(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, text, false, false)
}

func plainText(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, text, false, false)
}
