package generation

import (
	"errors"
	"fmt"
)

// ErrGenerationFailed matches every failure returned by the client.
var ErrGenerationFailed = errors.New("generation failed")

// MissingKeyMessage is shown when no provider credential is configured.
const MissingKeyMessage = "Generation service is not configured: missing API key."

// Kind classifies a generation failure.
type Kind int

const (
	// KindConfiguration means the call was refused before any network activity.
	KindConfiguration Kind = iota + 1
	// KindTransport covers network failures and non-success replies.
	KindTransport
	// KindShape means a reply arrived but did not match the declared schema.
	KindShape
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTransport:
		return "transport"
	case KindShape:
		return "shape"
	default:
		return "unknown"
	}
}

// Error is returned by every failing operation. Message is safe to show to an
// end user; Err holds the underlying cause.
type Error struct {
	Op      Operation
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes every *Error match ErrGenerationFailed.
func (e *Error) Is(target error) bool {
	return target == ErrGenerationFailed
}

// KindOf returns the failure kind of err, or 0 if err is not a generation error.
func KindOf(err error) Kind {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	return 0
}

// UserMessage returns the displayable message carried by err.
func UserMessage(err error) string {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Message
	}
	return "Generation failed. Please try again."
}

func configurationError(op Operation, err error) *Error {
	return &Error{Op: op, Kind: KindConfiguration, Message: MissingKeyMessage, Err: err}
}

func transportError(op Operation, err error) *Error {
	return &Error{Op: op, Kind: KindTransport, Message: op.FailureMessage(), Err: err}
}

func shapeError(op Operation, err error) *Error {
	return &Error{Op: op, Kind: KindShape, Message: op.FailureMessage(), Err: err}
}
