package marionette

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSuchElement is returned when a locator does not resolve to an element.
	ErrNoSuchElement = errors.New("no such element")
	// ErrStaleElement is returned when an element reference is no longer attached to the document.
	ErrStaleElement = errors.New("stale element reference")
	// ErrNoSuchFrame is returned when switching to a frame that does not exist.
	ErrNoSuchFrame = errors.New("no such frame")
	// ErrUnknownCommand is returned by servers that do not implement a command.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrScriptTimeout is returned when an async script never finished.
	ErrScriptTimeout = errors.New("script timeout")
)

var sentinels = map[string]error{
	"no such element":         ErrNoSuchElement,
	"stale element reference": ErrStaleElement,
	"no such frame":           ErrNoSuchFrame,
	"unknown command":         ErrUnknownCommand,
	"script timeout":          ErrScriptTimeout,
}

// Error is a failure reported by the remote end.
type Error struct {
	Code       string
	Message    string
	Stacktrace string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return "marionette: " + e.Code
	}
	return fmt.Sprintf("marionette: %s: %s", e.Code, e.Message)
}

// Unwrap exposes the sentinel error for well-known codes so callers can use errors.Is.
func (e *Error) Unwrap() error {
	return sentinels[e.Code]
}

func newError(w *wireError) *Error {
	return &Error{Code: w.Error, Message: w.Message, Stacktrace: w.Stacktrace}
}
