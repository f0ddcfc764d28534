package client

import (
	"errors"
	"fmt"

	"github.com/astromechza/collabodux-go/pkg/messages"
)

var (
	ErrAlreadySubscribed   = errors.New("already subscribed")
	ErrAlreadyUnsubscribed = errors.New("already unsubscribed")
	ErrPatchUndefined      = errors.New("patch results in undefined")
	ErrNotReady            = errors.New("client is not ready")
	ErrClosed              = errors.New("client is closed")
)

// ValidationError is returned when the normalizer refuses a document.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid state: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// RejectError is a change rejection that retrying cannot fix.
type RejectError struct {
	Code   messages.RejectCode
	Reason string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("server rejected (%s): %s", e.Code, e.Reason)
}

// ServerError carries an error message sent by the server.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: %s", e.Message)
}
