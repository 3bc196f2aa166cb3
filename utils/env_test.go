package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("REMINDLY_INT", " 42 ")
	t.Setenv("REMINDLY_BAD_INT", "forty")
	t.Setenv("REMINDLY_DURATION", "90s")
	t.Setenv("REMINDLY_BOOL", "true")
	t.Setenv("REMINDLY_LIST", " a@example.com, ,b@example.com ,")

	assert.Equal(t, 42, GetEnvAsInt("REMINDLY_INT", 1))
	assert.Equal(t, 1, GetEnvAsInt("REMINDLY_BAD_INT", 1))
	assert.Equal(t, 7, GetEnvAsInt("REMINDLY_UNSET", 7))
	assert.Equal(t, uint64(42), GetEnvAsUint64("REMINDLY_INT", 1))
	assert.Equal(t, 90*time.Second, GetEnvAsDuration("REMINDLY_DURATION", time.Minute))
	assert.True(t, GetEnvAsBool("REMINDLY_BOOL", false))
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, GetEnvAsList("REMINDLY_LIST", ""))
	assert.Equal(t, []string{"x", "y"}, GetEnvAsList("REMINDLY_UNSET", "x,y"))
	assert.Nil(t, GetEnvAsList("REMINDLY_UNSET", ""))
}
