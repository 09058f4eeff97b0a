// Package server carries the cross-cutting server plumbing: the structured
// error taxonomy and the HTTP health endpoint used in streamable mode.
package server

import (
	"fmt"
	"time"
)

// Error types for structured error handling
type ErrorType string

const (
	ErrorTypeSpec       ErrorType = "spec"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeLookup     ErrorType = "lookup"
	ErrorTypeTransport  ErrorType = "transport"
	ErrorTypeStartup    ErrorType = "startup"
)

// ServerError represents a structured error with context
type ServerError struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// Error implements the error interface
func (e *ServerError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewError creates a new ServerError
func NewError(errType ErrorType, message string, details string) *ServerError {
	return &ServerError{
		Type:      errType,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().Unix(),
	}
}

// WithRequestID attaches the per-invocation request id to the error
func (e *ServerError) WithRequestID(requestID string) *ServerError {
	e.RequestID = requestID
	return e
}

// Wrap converts an arbitrary error into a ServerError of the given type,
// passing existing ServerErrors through unchanged
func Wrap(err error, errType ErrorType, message string) *ServerError {
	if err == nil {
		return nil
	}
	if serverErr, ok := err.(*ServerError); ok {
		return serverErr
	}
	return NewError(errType, message, err.Error())
}
