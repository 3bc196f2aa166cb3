package model

// TaskPatch holds the editable task fields. Nil means "leave unchanged".
type TaskPatch struct {
	Title             *string            `json:"title"`
	DueDate           *string            `json:"due_date"`
	DueTime           *string            `json:"due_time"`
	Completed         *bool              `json:"completed"`
	ReminderType      *ReminderType      `json:"reminder_type"`
	ReminderFrequency *ReminderFrequency `json:"reminder_frequency"`
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.DueDate == nil && p.DueTime == nil &&
		p.Completed == nil && p.ReminderType == nil && p.ReminderFrequency == nil
}

// ReminderScope says how much of a task's reminder state a field update may write.
// Delivery counters and history are never written by a field update.
type ReminderScope int

const (
	// ReminderKeep leaves reminder_state untouched.
	ReminderKeep ReminderScope = iota
	// ReminderSchedule writes the total and the armed instant of an existing state.
	ReminderSchedule
	// ReminderReplace installs the task's state wholesale, or removes it when nil.
	ReminderReplace
)

// TaskMutation is the closed set of bulk changes an admin may apply.
type TaskMutation interface {
	Action() string
	taskMutation()
}

const (
	ActionComplete           = "complete"
	ActionUncomplete         = "uncomplete"
	ActionUpdateReminderType = "update_reminder_type"
	ActionReassignUser       = "reassign_user"
	ActionCustom             = "custom"
)

type SetCompleted struct {
	Completed bool
}

type SetReminderType struct {
	Type ReminderType
}

type ReassignOwner struct {
	Owner string
}

type ApplyPatch struct {
	Patch TaskPatch
}

func (m SetCompleted) Action() string {
	if m.Completed {
		return ActionComplete
	}
	return ActionUncomplete
}

func (SetReminderType) Action() string { return ActionUpdateReminderType }
func (ReassignOwner) Action() string   { return ActionReassignUser }
func (ApplyPatch) Action() string      { return ActionCustom }

func (SetCompleted) taskMutation()    {}
func (SetReminderType) taskMutation() {}
func (ReassignOwner) taskMutation()   {}
func (ApplyPatch) taskMutation()      {}

// TaskInput is the data a caller supplies to create a task.
type TaskInput struct {
	Title             string
	DueDate           string
	DueTime           string
	Owner             string
	ReminderType      ReminderType
	ReminderFrequency ReminderFrequency
}
