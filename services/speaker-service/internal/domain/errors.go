package domain

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeEventUnavailable     Code = "EVENT_UNAVAILABLE"
	CodeTooEarly             Code = "TOO_EARLY"
	CodeEnded                Code = "ENDED"
	CodeNoAcceptedInvitation Code = "NO_ACCEPTED_INVITATION"
	CodeAlreadyResponded     Code = "ALREADY_RESPONDED"
	CodeNotJoined            Code = "NOT_JOINED"
	CodeAlreadyJoined        Code = "ALREADY_JOINED"
	CodeForeignMaterial      Code = "FOREIGN_MATERIAL"
	CodeNotFound             Code = "NOT_FOUND"
	CodeValidation           Code = "VALIDATION"
)

// Error is a business rule violation. Callers branch on Code; the request
// layer maps codes to user-facing responses.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func ErrEventUnavailable(msg string) error {
	return &Error{Code: CodeEventUnavailable, Message: msg}
}
func ErrTooEarly(msg string) error { return &Error{Code: CodeTooEarly, Message: msg} }
func ErrEnded(msg string) error    { return &Error{Code: CodeEnded, Message: msg} }
func ErrNoAcceptedInvitation(msg string) error {
	return &Error{Code: CodeNoAcceptedInvitation, Message: msg}
}
func ErrAlreadyResponded(msg string) error { return &Error{Code: CodeAlreadyResponded, Message: msg} }
func ErrNotJoined(msg string) error        { return &Error{Code: CodeNotJoined, Message: msg} }
func ErrAlreadyJoined(msg string) error    { return &Error{Code: CodeAlreadyJoined, Message: msg} }
func ErrForeignMaterial(msg string) error  { return &Error{Code: CodeForeignMaterial, Message: msg} }
func ErrNotFound(msg string) error         { return &Error{Code: CodeNotFound, Message: msg} }
func ErrValidation(msg string) error       { return &Error{Code: CodeValidation, Message: msg} }

// HasCode reports whether err carries the given business code.
func HasCode(err error, code Code) bool {
	var de *Error
	return errors.As(err, &de) && de.Code == code
}

// CodeOf returns the business code of err, or "" for plain errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
