// Package policy implements the lot status/permission matrix and the
// transition guard: pure decisions over a current lot, a proposed patch and
// the acting user. Nothing in here touches storage or transport.
package policy

import "fmt"

// Error is a structured business-rule rejection: which part of the request
// was wrong, why, and the HTTP-equivalent status to report it with.
type Error struct {
	Location string // "body" or "url"
	Name     string // offending field
	Message  string
	Status   int // 403 or 422
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s.%s: %s", e.Location, e.Name, e.Message)
}

func forbidden(name, message string) *Error {
	return &Error{Location: "body", Name: name, Message: message, Status: 403}
}

func invalid(name, message string) *Error {
	return &Error{Location: "body", Name: name, Message: message, Status: 422}
}
