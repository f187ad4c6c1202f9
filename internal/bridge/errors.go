package bridge

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotImplemented is returned for methods the bridge does not handle.
	ErrNotImplemented = errors.New("method not implemented")
	// ErrUnreadableImage wraps failures to open or decode the input image.
	ErrUnreadableImage = errors.New("image could not be read")
	// ErrNoText means the engine finished without recognizing any text.
	ErrNoText = errors.New("no text recognized")
	// ErrTimeout means the invocation deadline passed before the engine finished.
	ErrTimeout = errors.New("recognition timed out")
)

// ArgumentError reports a missing or malformed invocation argument.
type ArgumentError struct {
	Key    string
	Reason string
}

func (e *ArgumentError) Error() string {
	if e.Key == "" {
		return "invalid arguments: " + e.Reason
	}
	return fmt.Sprintf("invalid argument %q: %s", e.Key, e.Reason)
}

// EngineError wraps a failure reported by the OCR engine.
type EngineError struct {
	Engine string
	Err    error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Engine, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// Wire codes returned by Code.
const (
	CodeInvalidArguments = "invalidArguments"
	CodeNotImplemented   = "notImplemented"
	CodeUnreadableImage  = "unreadableImage"
	CodeNoText           = "noText"
	CodeTimeout          = "timeout"
	CodeCanceled         = "canceled"
	CodeEngine           = "engineError"
)

// Code maps an error returned by Bridge.Handle to a stable wire code.
func Code(err error) string {
	var argErr *ArgumentError
	switch {
	case errors.As(err, &argErr):
		return CodeInvalidArguments
	case errors.Is(err, ErrNotImplemented):
		return CodeNotImplemented
	case errors.Is(err, ErrUnreadableImage):
		return CodeUnreadableImage
	case errors.Is(err, ErrNoText):
		return CodeNoText
	case errors.Is(err, ErrTimeout):
		return CodeTimeout
	case errors.Is(err, context.Canceled):
		return CodeCanceled
	default:
		return CodeEngine
	}
}
