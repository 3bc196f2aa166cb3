// Package reminder computes when task reminders are due and delivers them.
package reminder

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"remindly/model"
	"remindly/utils"
)

// ParseClock validates an HH:MM time of day and returns its parts.
// A single-digit hour ("9:05") is accepted.
func ParseClock(s string) (hour, minute int, err error) {
	m := utils.ClockPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	return hour, minute, nil
}

// NormalizeClock returns the two-digit HH:MM form of s.
func NormalizeClock(s string) (string, error) {
	h, m, err := ParseClock(s)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d:%02d", h, m), nil
}

// ParseDate accepts a bare calendar date or an RFC 3339 timestamp and returns
// midnight UTC of that calendar day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(model.DateLayout, s); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
}

// DueInstant combines a calendar date and an HH:MM time of day in loc.
func DueInstant(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	h, m, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.Local
	}
	y, mo, d := date.UTC().Date()
	return time.Date(y, mo, d, h, m, 0, 0, loc), nil
}

// Offset moves due back by the lead time of the reminder type.
// Month and year steps use calendar arithmetic, so March 31 minus one month
// overflows into early March rather than clamping to February.
func Offset(due time.Time, rt model.ReminderType) time.Time {
	switch rt {
	case model.ReminderWeekly:
		return due.AddDate(0, 0, -7)
	case model.ReminderFortnightly:
		return due.AddDate(0, 0, -14)
	case model.ReminderMonthly:
		return due.AddDate(0, -1, 0)
	case model.ReminderBimonthly:
		return due.AddDate(0, -2, 0)
	case model.ReminderQuarterly:
		return due.AddDate(0, -3, 0)
	case model.ReminderHalfYearly:
		return due.AddDate(0, -6, 0)
	case model.ReminderAnnually:
		return due.AddDate(-1, 0, 0)
	case model.ReminderBiAnnually:
		return due.AddDate(-2, 0, 0)
	case model.ReminderTriAnnually:
		return due.AddDate(-3, 0, 0)
	default:
		return due.AddDate(0, 0, -1)
	}
}

// ComputeNextReminder returns the instant the next reminder should fire.
// ok is false when the task is already due or the reminder window has passed;
// backlog reminders are never produced.
func ComputeNextReminder(due time.Time, rt model.ReminderType, now time.Time) (next time.Time, ok bool) {
	if !due.After(now) {
		return time.Time{}, false
	}
	next = Offset(due, rt)
	if !next.After(now) {
		return time.Time{}, false
	}
	return next, true
}

// Refresh recomputes the armed instant of a task's reminder state.
// It reports whether a reminder is now armed.
func Refresh(task *model.Task, now time.Time) bool {
	if task.ReminderState == nil {
		return false
	}
	if task.Completed || task.ReminderState.Exhausted() {
		task.ReminderState.ClearNext()
		return false
	}
	next, ok := ComputeNextReminder(task.DueAt, task.ReminderType, now)
	if !ok {
		task.ReminderState.ClearNext()
		return false
	}
	task.ReminderState.SetNext(next)
	return true
}

// TotalForFrequency maps a frequency to its configured reminder count.
func TotalForFrequency(f model.ReminderFrequency) int {
	return f.Total()
}
