package utils

import (
	"reflect"
	"regexp"
	"strings"

	"remindly/model"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// ClockPattern matches an HH:MM time of day; the hour may be a single digit.
var ClockPattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):([0-5][0-9])$`)

var Validate *validator.Validate

// InitValidator registers the custom tags on both the standalone validator and gin's binding engine.
func InitValidator() {
	Validate = validator.New()
	RegisterCustomValidators(Validate)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterCustomValidators(v)
	}
}

func RegisterCustomValidators(v *validator.Validate) {
	// report json field names so errors line up with the request body
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	v.RegisterValidation("hhmm", ValidateClockRule)
	v.RegisterValidation("reminder_type", ValidateReminderTypeRule)
	v.RegisterValidation("reminder_frequency", ValidateReminderFrequencyRule)
}

func ValidateClockRule(fl validator.FieldLevel) bool {
	return IsClock(fl.Field().String())
}

func ValidateReminderTypeRule(fl validator.FieldLevel) bool {
	return model.ReminderType(fl.Field().String()).Valid()
}

func ValidateReminderFrequencyRule(fl validator.FieldLevel) bool {
	return model.ReminderFrequency(fl.Field().String()).Valid()
}

func IsClock(s string) bool {
	return ClockPattern.MatchString(strings.TrimSpace(s))
}

// NormalizeEmail lowercases and trims an address before it is used as a key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
