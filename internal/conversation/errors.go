package conversation

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindTokenization
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindTokenization:
		return "tokenization"
	case KindUpstream:
		return "upstream"
	}
	return "unknown"
}

// Error несёт вид отказа, чтобы delivery могла выбрать HTTP-статус.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func TokenizationError(op string, err error) error {
	return &Error{Kind: KindTokenization, Op: op, Err: err}
}

func UpstreamError(op string, err error) error {
	return &Error{Kind: KindUpstream, Op: op, Err: err}
}

func InvalidInputError(op string, err error) error {
	return &Error{Kind: KindInvalidInput, Op: op, Err: err}
}

// KindOf возвращает KindUnknown для ошибок вне таксономии.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
