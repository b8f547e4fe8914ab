package service

import "fmt"

// ValidationError reports input the clinic cannot accept. Field names the
// offending form field when there is one.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// AuthError reports failed credentials or a missing session.
type AuthError struct {
	Msg string
}

func (e *AuthError) Error() string { return e.Msg }

// NotFoundError reports a referenced record that does not exist.
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d não encontrado", e.Entity, e.ID)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}
