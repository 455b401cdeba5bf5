package bywhen

import (
	"time"
)

const (
	slotInterval = 15 * time.Minute
	slotsPerDay  = int(24 * time.Hour / slotInterval)
	slotLayout   = "3:04 PM"
)

// A TimeSlot is a selectable time of day. Label is shown to the user, Value is sent back when the slot is selected.
type TimeSlot struct {
	Label string
	Value string
}

// TimeSlots returns every quarter-hour of a day, from "12:00 AM" up to and including "11:45 PM".
//
// Slots are computed from a fixed midnight in UTC, so the result never depends on the current time or on
// daylight saving transitions in the local timezone.
func TimeSlots() []TimeSlot {
	midnight := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	slots := make([]TimeSlot, 0, slotsPerDay)
	for i := 0; i < slotsPerDay; i++ {
		label := midnight.Add(time.Duration(i) * slotInterval).Format(slotLayout)
		slots = append(slots, TimeSlot{Label: label, Value: label})
	}
	return slots
}
