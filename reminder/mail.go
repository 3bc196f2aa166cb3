package reminder

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"remindly/model"
)

//go:embed templates/*
var templateFS embed.FS

var (
	textTemplate = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/reminder.txt"))
	htmlTemplate = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/reminder.html"))
)

type mailData struct {
	Title  string
	Date   string
	Time   string
	Type   model.ReminderType
	Number int
	Total  int
	Manual bool
}

// ComposeReminder builds the scheduled reminder email for the given 1-based reminder number.
func ComposeReminder(task *model.Task, to string, number, total int) (model.Email, error) {
	return compose(task, to, fmt.Sprintf("🔔 Task Reminder %d/%d: %s", number, total, task.Title), mailData{
		Number: number,
		Total:  total,
	})
}

// ComposeManualReminder builds the email an admin sends outside the schedule.
func ComposeManualReminder(task *model.Task, to string) (model.Email, error) {
	return compose(task, to, "🔔 Admin Reminder: "+task.Title, mailData{Manual: true})
}

func compose(task *model.Task, to, subject string, data mailData) (model.Email, error) {
	data.Title = task.Title
	data.Date = task.DueDate.UTC().Format("Mon Jan 02 2006")
	data.Time = task.DueTime
	data.Type = task.ReminderType

	var text, html bytes.Buffer
	if err := textTemplate.Execute(&text, data); err != nil {
		return model.Email{}, fmt.Errorf("render text reminder: %w", err)
	}
	if err := htmlTemplate.Execute(&html, data); err != nil {
		return model.Email{}, fmt.Errorf("render html reminder: %w", err)
	}
	return model.Email{To: to, Subject: subject, Text: text.String(), HTML: html.String()}, nil
}
