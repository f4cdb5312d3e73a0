package model

import (
	"fmt"
	"strings"
	"time"
)

// MaxTags is the most tags a session may carry.
const MaxTags = 3

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// ValidateInput checks a new session for constraint violations.
// It returns a *ValidationError if any rules fail, or nil if the input is valid.
func ValidateInput(in *SessionInput) error {
	var ve ValidationError
	if in == nil {
		ve.add("input", "is required")
		return &ve
	}

	if strings.TrimSpace(in.Date) == "" {
		ve.add("date", "is required")
	} else {
		checkDate(&ve, in.Date)
	}
	checkStartTime(&ve, in.StartTime)

	if in.Type == "" {
		ve.add("type", "is required")
	} else {
		checkType(&ve, in.Type)
	}

	checkDuration(&ve, in.DurationMin)
	checkTags(&ve, in.Tags)

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// ValidatePatch checks the fields present in a patch under the same rules
// as ValidateInput.
func ValidatePatch(p *SessionPatch) error {
	var ve ValidationError
	if p == nil {
		ve.add("patch", "is required")
		return &ve
	}

	if p.Date != nil {
		if strings.TrimSpace(*p.Date) == "" {
			ve.add("date", "is required")
		} else {
			checkDate(&ve, *p.Date)
		}
	}
	if p.StartTime != nil {
		checkStartTime(&ve, *p.StartTime)
	}
	if p.Type != nil {
		checkType(&ve, *p.Type)
	}
	if p.DurationMin != nil {
		checkDuration(&ve, *p.DurationMin)
	}
	if p.Tags != nil {
		checkTags(&ve, *p.Tags)
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

func checkDate(ve *ValidationError, date string) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		ve.add("date", "must be a YYYY-MM-DD date, got %q", date)
	}
}

func checkStartTime(ve *ValidationError, start string) {
	if start == "" {
		return
	}
	if _, err := time.Parse(TimeLayout, start); err != nil {
		ve.add("startTime", "must be an HH:MM time, got %q", start)
	}
}

func checkType(ve *ValidationError, t SessionType) {
	if !t.IsValid() {
		ve.add("type", "invalid value %q", t)
	}
}

func checkDuration(ve *ValidationError, d int) {
	if d <= 0 {
		ve.add("durationMin", "must be a positive number of minutes, got %d", d)
	}
}

func checkTags(ve *ValidationError, tags []string) {
	if len(tags) > MaxTags {
		ve.add("tags", "at most %d tags allowed, got %d", MaxTags, len(tags))
	}
	for i, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			ve.add("tags", "tag %d is blank", i)
		}
	}
}
