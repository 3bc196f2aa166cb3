package model

import "time"

type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

type ReminderHistoryEntry struct {
	SentAt         time.Time      `bson:"sent_at" json:"sent_at"`
	ReminderNumber int            `bson:"reminder_number" json:"reminder_number"`
	Status         DeliveryStatus `bson:"status" json:"status"`
}

// ReminderState tracks configured vs delivered reminders for one task.
type ReminderState struct {
	TotalReminders     int                    `bson:"total_reminders" json:"total_reminders"`
	SentReminders      int                    `bson:"sent_reminders" json:"sent_reminders"`
	LastReminderSentAt *time.Time             `bson:"last_reminder_sent_at,omitempty" json:"last_reminder_sent_at,omitempty"`
	NextReminderDueAt  *time.Time             `bson:"next_reminder_due_at" json:"next_reminder_due_at"`
	History            []ReminderHistoryEntry `bson:"history" json:"history"`
}

func NewReminderState(total int) *ReminderState {
	return &ReminderState{
		TotalReminders: total,
		History:        []ReminderHistoryEntry{},
	}
}

// Exhausted is true once every configured reminder was delivered.
func (s *ReminderState) Exhausted() bool {
	return s.SentReminders >= s.TotalReminders
}

// NextNumber is the 1-based number of the reminder about to go out.
func (s *ReminderState) NextNumber() int {
	return s.SentReminders + 1
}

func (s *ReminderState) SetNext(at time.Time) {
	s.NextReminderDueAt = &at
}

func (s *ReminderState) ClearNext() {
	s.NextReminderDueAt = nil
}

// Resize applies a new configured total. Sent reminders are never rolled back,
// so the total cannot drop below them.
func (s *ReminderState) Resize(total int) {
	if total < s.SentReminders {
		total = s.SentReminders
	}
	s.TotalReminders = total
}

// RecordSent appends a successful delivery and disarms the state.
func (s *ReminderState) RecordSent(at time.Time) ReminderHistoryEntry {
	entry := ReminderHistoryEntry{SentAt: at, ReminderNumber: s.NextNumber(), Status: DeliverySent}
	s.History = append(s.History, entry)
	s.SentReminders++
	s.LastReminderSentAt = &at
	s.NextReminderDueAt = nil
	return entry
}

// RecordFailed appends a failed delivery without counting it as sent.
func (s *ReminderState) RecordFailed(at time.Time) ReminderHistoryEntry {
	entry := ReminderHistoryEntry{SentAt: at, ReminderNumber: s.NextNumber(), Status: DeliveryFailed}
	s.History = append(s.History, entry)
	s.NextReminderDueAt = nil
	return entry
}

func (s *ReminderState) Clone() *ReminderState {
	c := *s
	if s.LastReminderSentAt != nil {
		t := *s.LastReminderSentAt
		c.LastReminderSentAt = &t
	}
	if s.NextReminderDueAt != nil {
		t := *s.NextReminderDueAt
		c.NextReminderDueAt = &t
	}
	c.History = make([]ReminderHistoryEntry, len(s.History))
	copy(c.History, s.History)
	return &c
}

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobFiring    JobStatus = "firing"
	JobSent      JobStatus = "sent"
	JobFailed    JobStatus = "failed"
	JobMissed    JobStatus = "missed"
	JobCancelled JobStatus = "cancelled"
	JobSkipped   JobStatus = "skipped"
)

// ReminderJob is the persisted record of an armed delivery.
type ReminderJob struct {
	TaskID     string     `bson:"task_id" json:"task_id"`
	DueAt      time.Time  `bson:"due_at" json:"due_at"`
	Recipient  string     `bson:"recipient" json:"recipient"`
	Status     JobStatus  `bson:"status" json:"status"`
	ArmedAt    time.Time  `bson:"armed_at" json:"armed_at"`
	FinishedAt *time.Time `bson:"finished_at,omitempty" json:"finished_at,omitempty"`
	Error      string     `bson:"error,omitempty" json:"error,omitempty"`
}

// Email is the payload handed to the mail transport.
type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}
