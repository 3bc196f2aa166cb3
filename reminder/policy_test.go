package reminder

import (
	"testing"
	"time"

	"remindly/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestComputeNextReminder(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		due    time.Time
		rt     model.ReminderType
		want   time.Time
		wantOK bool
	}{
		{
			name:   "custom fires one day early",
			due:    time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
			rt:     model.ReminderCustom,
			want:   time.Date(2025, 1, 9, 9, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "weekly ten days out fires in three days",
			due:    now.AddDate(0, 0, 10),
			rt:     model.ReminderWeekly,
			want:   now.AddDate(0, 0, 3),
			wantOK: true,
		},
		{
			name:   "monthly keeps the time of day",
			due:    time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
			rt:     model.ReminderMonthly,
			want:   time.Date(2025, 2, 10, 9, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "month overflow is not clamped",
			due:    time.Date(2025, 3, 31, 9, 0, 0, 0, time.UTC),
			rt:     model.ReminderMonthly,
			want:   time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "half yearly",
			due:    time.Date(2025, 9, 1, 8, 30, 0, 0, time.UTC),
			rt:     model.ReminderHalfYearly,
			want:   time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "tri annually",
			due:    time.Date(2029, 6, 1, 8, 0, 0, 0, time.UTC),
			rt:     model.ReminderTriAnnually,
			want:   time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name: "weekly window already passed",
			due:  now.AddDate(0, 0, 3),
			rt:   model.ReminderWeekly,
		},
		{
			name: "due instant in the past",
			due:  now.Add(-time.Minute),
			rt:   model.ReminderCustom,
		},
		{
			name: "due exactly now",
			due:  now,
			rt:   model.ReminderCustom,
		},
		{
			name: "offset lands exactly on now",
			due:  now.AddDate(0, 0, 1),
			rt:   model.ReminderCustom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ComputeNextReminder(tt.due, tt.rt, now)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
			} else {
				assert.True(t, got.IsZero())
			}
		})
	}
}

func TestComputeNextReminderProperties(t *testing.T) {
	base := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	rapid.Check(t, func(rt *rapid.T) {
		now := base.Add(time.Duration(rapid.IntRange(0, 24*365).Draw(rt, "nowHours")) * time.Hour)
		due := now.Add(time.Duration(rapid.IntRange(-24*400, 24*365*4).Draw(rt, "dueHours")) * time.Hour)
		reminderType := rapid.SampledFrom(model.ReminderTypes).Draw(rt, "type")

		next, ok := ComputeNextReminder(due, reminderType, now)
		if !due.After(now) && ok {
			rt.Fatalf("due %s <= now %s but got reminder %s", due, now, next)
		}
		if !ok {
			return
		}
		if !next.After(now) {
			rt.Fatalf("reminder %s is not after now %s", next, now)
		}
		if next.After(due) {
			rt.Fatalf("reminder %s is after due %s", next, due)
		}
		if reminderType == model.ReminderCustom && !next.Equal(due.Add(-24*time.Hour)) {
			rt.Fatalf("custom reminder %s, want due-24h", next)
		}
	})
}

func TestDueInstant(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	date, err := ParseDate("2025-03-10")
	require.NoError(t, err)

	got, err := DueInstant(date, "9:05", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 5, 0, 0, loc), got)

	_, err = DueInstant(date, "24:00", loc)
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-10T22:30:00-05:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("10/03/2025")
	assert.Error(t, err)
}

func TestNormalizeClock(t *testing.T) {
	for in, want := range map[string]string{"9:05": "09:05", "23:59": "23:59", "00:00": "00:00"} {
		got, err := NormalizeClock(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	for _, in := range []string{"", "24:00", "12:60", "12-30", "1230", "ab:cd"} {
		_, err := NormalizeClock(in)
		assert.Error(t, err, in)
	}
}

func TestRefresh(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	task := &model.Task{
		DueAt:         now.AddDate(0, 0, 10),
		ReminderType:  model.ReminderWeekly,
		ReminderState: model.NewReminderState(2),
	}

	require.True(t, Refresh(task, now))
	assert.Equal(t, now.AddDate(0, 0, 3), *task.NextReminderDueAt())

	task.Completed = true
	assert.False(t, Refresh(task, now))
	assert.Nil(t, task.NextReminderDueAt())

	task.Completed = false
	task.ReminderState.SentReminders = 2
	assert.False(t, Refresh(task, now))
	assert.Nil(t, task.NextReminderDueAt())
}

func TestTotalForFrequency(t *testing.T) {
	assert.Equal(t, 0, TotalForFrequency(model.FrequencyNone))
	assert.Equal(t, 1, TotalForFrequency(model.FrequencyOnce))
	assert.Equal(t, 2, TotalForFrequency(model.FrequencyTwice))
	assert.Equal(t, 3, TotalForFrequency(model.FrequencyThrice))
}
