package model

import (
	"encoding/json"
	"time"
)

type ReminderType string
type ReminderFrequency string

const (
	ReminderCustom      ReminderType = "Custom"
	ReminderWeekly      ReminderType = "Weekly"
	ReminderFortnightly ReminderType = "Fortnightly"
	ReminderMonthly     ReminderType = "Monthly"
	ReminderBimonthly   ReminderType = "Bimonthly"
	ReminderQuarterly   ReminderType = "Quarterly"
	ReminderHalfYearly  ReminderType = "Half yearly"
	ReminderAnnually    ReminderType = "Annually"
	ReminderBiAnnually  ReminderType = "Bi annually"
	ReminderTriAnnually ReminderType = "Tri annually"

	FrequencyNone   ReminderFrequency = ""
	FrequencyOnce   ReminderFrequency = "Once"
	FrequencyTwice  ReminderFrequency = "Twice"
	FrequencyThrice ReminderFrequency = "Thrice"
)

// ReminderTypes lists every accepted reminder type in display order.
var ReminderTypes = []ReminderType{
	ReminderCustom,
	ReminderWeekly,
	ReminderFortnightly,
	ReminderMonthly,
	ReminderBimonthly,
	ReminderQuarterly,
	ReminderHalfYearly,
	ReminderAnnually,
	ReminderBiAnnually,
	ReminderTriAnnually,
}

func (t ReminderType) Valid() bool {
	for _, rt := range ReminderTypes {
		if t == rt {
			return true
		}
	}
	return false
}

func (f ReminderFrequency) Valid() bool {
	switch f {
	case FrequencyNone, FrequencyOnce, FrequencyTwice, FrequencyThrice:
		return true
	}
	return false
}

// Total returns how many reminders the frequency asks for.
func (f ReminderFrequency) Total() int {
	switch f {
	case FrequencyOnce:
		return 1
	case FrequencyTwice:
		return 2
	case FrequencyThrice:
		return 3
	default:
		return 0
	}
}

const MaxTitleLength = 200

// DateLayout is the wire and storage format of a task's calendar date.
const DateLayout = "2006-01-02"

type Task struct {
	ID                string            `bson:"_id,omitempty" json:"id"`
	Title             string            `bson:"title" json:"title"`
	DueDate           time.Time         `bson:"due_date" json:"-"`
	DueTime           string            `bson:"due_time" json:"due_time"`
	DueAt             time.Time         `bson:"due_at" json:"due_at"`
	Owner             string            `bson:"owner" json:"owner"`
	Completed         bool              `bson:"completed" json:"completed"`
	ReminderType      ReminderType      `bson:"reminder_type" json:"reminder_type"`
	ReminderFrequency ReminderFrequency `bson:"reminder_frequency,omitempty" json:"reminder_frequency,omitempty"`
	ReminderState     *ReminderState    `bson:"reminder_state,omitempty" json:"reminder_state,omitempty"`
	CreatedAt         time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `bson:"updated_at" json:"updated_at"`
}

// DueDate is kept as midnight UTC of the calendar day so it survives BSON round trips;
// DueAt carries the real instant in the server's location.

// DueDateString renders the calendar date in DateLayout.
func (t *Task) DueDateString() string {
	return t.DueDate.UTC().Format(DateLayout)
}

// MarshalJSON renders due_date as a plain calendar date.
func (t Task) MarshalJSON() ([]byte, error) {
	type alias Task
	return json.Marshal(struct {
		alias
		DueDate string `json:"due_date"`
	}{alias: alias(t), DueDate: t.DueDateString()})
}

// Overdue reports whether an incomplete task's due instant lies before now.
func (t *Task) Overdue(now time.Time) bool {
	return !t.Completed && t.DueAt.Before(now)
}

// NextReminderDueAt returns the armed instant, or nil when nothing is armed.
func (t *Task) NextReminderDueAt() *time.Time {
	if t.ReminderState == nil {
		return nil
	}
	return t.ReminderState.NextReminderDueAt
}

// Clone returns a deep copy so callers can diff before/after an edit.
func (t *Task) Clone() *Task {
	c := *t
	if t.ReminderState != nil {
		c.ReminderState = t.ReminderState.Clone()
	}
	return &c
}

// TaskFilter is the query shape shared by task listings and counts.
type TaskFilter struct {
	IDs          []string
	Owner        string
	Completed    *bool
	ReminderType ReminderType
	HasReminder  bool
	DueFrom      *time.Time // inclusive, on due_at
	DueBefore    *time.Time // exclusive, on due_at
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	// NextReminderBefore matches tasks whose next reminder is due at or before the instant.
	NextReminderBefore *time.Time
	Search             string
	SortBy             string
	SortAsc            bool
	Skip               int64
	Limit              int64
}

// TaskSortFields are the fields a listing may be sorted by, mapped to storage keys.
var TaskSortFields = map[string]string{
	"created_at": "created_at",
	"due_at":     "due_at",
	"title":      "title",
	"updated_at": "updated_at",
}
