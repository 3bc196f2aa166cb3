package repository

import "errors"

var (
	ErrNotFound          = errors.New("record not found")
	ErrReminderExhausted = errors.New("all configured reminders were already sent")
	ErrUnsupportedUpdate = errors.New("mutation cannot be applied as a set update")
)
