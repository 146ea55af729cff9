package model

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxTextLength bounds question and answer bodies, in runes.
const MaxTextLength = 5000

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

// NormalizeText trims surrounding whitespace from user input.
func NormalizeText(raw string) string {
	return strings.TrimSpace(raw)
}

// NormalizeAnswer trims raw and maps an empty result to nil, which retracts
// the answer.
func NormalizeAnswer(raw string) *string {
	a := strings.TrimSpace(raw)
	if a == "" {
		return nil
	}
	return &a
}

// ValidateQuestion checks a Question for constraint violations.
// It returns a *ValidationError if any rules fail, or nil if the question is valid.
func ValidateQuestion(q *Question) error {
	var ve ValidationError

	text := strings.TrimSpace(q.Text)
	if text == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "text", Message: "is required"})
	} else if !utf8.ValidString(text) {
		ve.Errors = append(ve.Errors, FieldError{Field: "text", Message: "must be valid UTF-8"})
	} else if n := len([]rune(text)); n > MaxTextLength {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "text",
			Message: fmt.Sprintf("must be %d characters or fewer, got %d", MaxTextLength, n),
		})
	}

	if q.Answer != nil && !utf8.ValidString(*q.Answer) {
		ve.Errors = append(ve.Errors, FieldError{Field: "answer", Message: "must be valid UTF-8"})
	} else if q.Answer != nil && len([]rune(*q.Answer)) > MaxTextLength {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "answer",
			Message: fmt.Sprintf("must be %d characters or fewer", MaxTextLength),
		})
	}

	// AnsweredAt tracks Answer exactly.
	if q.Answer != nil && q.AnsweredAt == nil {
		ve.Errors = append(ve.Errors, FieldError{Field: "answered_at", Message: "is required when answer is set"})
	}
	if q.Answer == nil && q.AnsweredAt != nil {
		ve.Errors = append(ve.Errors, FieldError{Field: "answered_at", Message: "must be nil when answer is nil"})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
