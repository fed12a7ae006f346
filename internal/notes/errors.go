package notes

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ErrInvalidNote is the sentinel behind every ValidationError.
var ErrInvalidNote = errors.New("notes: invalid note")

// ValidationError carries per-field messages for input that must not be
// persisted, such as a blank or over-long title.
type ValidationError struct {
	Fields validation.Errors
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrInvalidNote.Error()
	}
	return fmt.Sprintf("%s: %s", ErrInvalidNote.Error(), e.Fields.Error())
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidNote
}

// FieldMessages flattens Fields into a field -> message map.
func (e *ValidationError) FieldMessages() map[string]string {
	out := make(map[string]string, len(e.Fields))
	for field, err := range e.Fields {
		out[field] = err.Error()
	}
	return out
}
