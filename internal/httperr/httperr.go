// Package httperr defines the error values returned by request handlers and
// how each of them is written to the client.
package httperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an Error and decides its HTTP status
type Kind int

const (
	KindClientInput Kind = iota + 1
	KindNotFound
	KindConflict
	KindMethodNotAllowed
	KindInfrastructure
)

// Status returns the HTTP status code for the kind
func (k Kind) Status() int {
	switch k {
	case KindClientInput, KindConflict:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindClientInput:
		return "client_input"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindMethodNotAllowed:
		return "method_not_allowed"
	default:
		return "infrastructure"
	}
}

// Error is the JSON error body plus the kind that selects its status.
// Code is serialized as the "error" field.
type Error struct {
	Kind    Kind     `json:"-"`
	Code    string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Details string   `json:"details,omitempty"`
	Missing []string `json:"missing,omitempty"`
	Field   string   `json:"field,omitempty"`
	Err     error    `json:"-"`
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	case e.Message != "":
		return e.Code + ": " + e.Message
	default:
		return e.Code
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status code for the error
func (e *Error) Status() int {
	return e.Kind.Status()
}

// BadRequest creates a client input error
func BadRequest(code string) *Error {
	return &Error{Kind: KindClientInput, Code: code}
}

// InvalidJSON is returned when a request body is not a JSON object
func InvalidJSON() *Error {
	return BadRequest("Invalid JSON input")
}

// InvalidField is returned when a JSON value has the wrong type or format
func InvalidField(err error) *Error {
	e := BadRequest("Invalid field value")
	e.Err = err
	e.Details = err.Error()
	return e
}

// MissingFields lists required keys that were absent from the body
func MissingFields(fields []string) *Error {
	return &Error{Kind: KindClientInput, Code: "Missing required fields", Missing: fields}
}

// NotFound creates a 404 error
func NotFound(code string) *Error {
	return &Error{Kind: KindNotFound, Code: code}
}

// Conflict is returned when an operation is blocked by existing references
func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

// MethodNotAllowed creates a 405 error; message may be empty
func MethodNotAllowed(message string) *Error {
	return &Error{Kind: KindMethodNotAllowed, Code: "Method not allowed", Message: message}
}

// Database wraps a failed query
func Database(err error) *Error {
	return &Error{Kind: KindInfrastructure, Code: "Database error", Details: err.Error(), Err: err}
}

// Internal wraps any other unexpected failure
func Internal(err error) *Error {
	return &Error{Kind: KindInfrastructure, Code: "Server error", Details: err.Error(), Err: err}
}

// From converts err into an *Error, treating unknown errors as internal ones
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// Write sends err as a JSON body with the matching status code
func Write(w http.ResponseWriter, err error) {
	e := From(err)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(e.Status())
	_ = json.NewEncoder(w).Encode(e)
}

// WriteJSON encodes v before touching the response so a marshal failure
// can still be reported as a 500
func WriteJSON(w http.ResponseWriter, status int, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return Internal(err)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
	return nil
}
