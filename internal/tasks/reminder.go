package tasks

import (
	"strconv"
	"strings"
	"time"

	"eva/internal/state"
	"eva/internal/store"
)

// reminderLayout is the date format users type: 13.02.2026 17:45.
const reminderLayout = "02.01.2006 15:04"

// CreateReminder parses the pipe-delimited reminder line
//
//	name | message | DD.MM.YYYY HH:MM | duration | location | minutes-before
//
// and persists it. Validation failures come back as messages; the
// pending-reminder flag is always cleared so the next utterance routes
// normally again.
func CreateReminder(st *state.Shared, db *store.Store, input string) string {
	defer st.SetReminderPending(false)

	fields := strings.Split(input, "|")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if len(fields) != 6 {
		return "You have not entered enough or too many parameters to create a note!"
	}

	startAt, err := time.ParseInLocation(reminderLayout, fields[2], time.Local)
	if err != nil {
		return "The format is entered incorrectly!"
	}
	duration, err := strconv.Atoi(fields[3])
	if err != nil {
		return "The duration has to be a number of minutes!"
	}
	alertBefore, err := strconv.Atoi(fields[5])
	if err != nil {
		return "The alert time has to be a number of minutes!"
	}

	reminder := store.Reminder{
		Name:               fields[0],
		Message:            fields[1],
		StartAt:            startAt,
		DurationMinutes:    duration,
		Location:           fields[4],
		AlertMinutesBefore: alertBefore,
	}
	if _, err := db.SaveReminder(reminder); err != nil {
		return "Error when creating an event: " + err.Error()
	}
	return "The event has been added!"
}
