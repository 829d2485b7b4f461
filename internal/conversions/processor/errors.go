package processor

import (
	"errors"
	"strings"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidAdvertiser  = errors.New("invalid advertiser")
	ErrConversionNotFound = errors.New("conversion not found")
)

// FieldError describes one rejected input field
type FieldError struct {
	Field   string
	Message string
}

// InputError collects every rejected field of a request
type InputError struct {
	Fields []FieldError
}

func (e *InputError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

func (e *InputError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *InputError) errOrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
