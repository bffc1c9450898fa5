package queue

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Kind groups engine errors by how a client should react to them.
type Kind int

const (
	// No or invalid session. Client should log in again.
	KindUnauthorized Kind = iota + 1
	// Request clashes with current state. Client shows a message.
	KindConflict
	// Cooldown still running. Client shows the remaining time.
	KindRateLimited
	// Nothing to serve. Informational.
	KindEmpty
	// Malformed request.
	KindInvalid
)

// Error is an engine failure with a stable code for the wire.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrUnauthorized     = &Error{Kind: KindUnauthorized, Code: "Unauthorized", Message: "unauthorized"}
	ErrDuplicateSession = &Error{Kind: KindConflict, Code: "DuplicateSession", Message: "already logged in"}
	ErrAlreadyQueued    = &Error{Kind: KindConflict, Code: "AlreadyQueued", Message: "you already have a number"}
	ErrNotQueued        = &Error{Kind: KindConflict, Code: "NotQueued", Message: "you do not have a number"}
	ErrCooldownActive   = &Error{Kind: KindRateLimited, Code: "CooldownActive", Message: "cooldown active"}
	ErrQueueEmpty       = &Error{Kind: KindEmpty, Code: "QueueEmpty", Message: "no more students in queue"}
	ErrEmptyName        = &Error{Kind: KindInvalid, Code: "EmptyName", Message: "name is required"}

	// Returned when a request is submitted after the worker stopped.
	ErrStopped = errors.New("queue stopped")
)

// CooldownError reports how long a student still has to wait. It
// matches ErrCooldownActive with errors.Is.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("please wait %d seconds before getting a new number", e.RemainingSeconds())
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldownActive
}

// RemainingSeconds rounds up, so a cooldown with 100ms left reports 1.
func (e *CooldownError) RemainingSeconds() int {
	return int(math.Ceil(e.Remaining.Seconds()))
}

// KindOf returns the Kind of err, or 0 when err is not an engine error.
func KindOf(err error) Kind {
	var cooldownErr *CooldownError
	if errors.As(err, &cooldownErr) {
		return KindRateLimited
	}
	var queueErr *Error
	if errors.As(err, &queueErr) {
		return queueErr.Kind
	}
	return 0
}

// CodeOf returns the wire code of err, or "Internal".
func CodeOf(err error) string {
	var cooldownErr *CooldownError
	if errors.As(err, &cooldownErr) {
		return ErrCooldownActive.Code
	}
	var queueErr *Error
	if errors.As(err, &queueErr) {
		return queueErr.Code
	}
	return "Internal"
}
