package dto

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/lexcal-api/internal/models"
)

// NewValidator returns a validator with the calendar-specific rules registered.
// Field errors are reported under their JSON (or query) names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(wireName)
	_ = v.RegisterValidation("recurrence_pattern", func(fl validator.FieldLevel) bool {
		return models.RecurrencePattern(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("priority", func(fl validator.FieldLevel) bool {
		p := models.Priority(fl.Field().Int())
		return p >= models.PriorityHigh && p <= models.PriorityLow
	})
	return v
}

func wireName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}
