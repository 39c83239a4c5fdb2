package fetchimg

import "errors"

// Kind classifies a failure by the stage that produced it.
type Kind int

const (
	KindInvalidInput Kind = iota + 1
	KindNetwork
	KindFileSystem
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid input"
	case KindNetwork:
		return "network error"
	case KindFileSystem:
		return "filesystem error"
	default:
		return "error"
	}
}

// Sentinels for use with errors.Is.
var (
	ErrInvalidInput = &Error{Kind: KindInvalidInput}
	ErrNetwork      = &Error{Kind: KindNetwork}
	ErrFileSystem   = &Error{Kind: KindFileSystem}
)

// Error is returned by Run for every failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so errors.Is(err, ErrNetwork)
// holds for every network failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func invalidInput(err error) error { return &Error{Kind: KindInvalidInput, Err: err} }
func network(err error) error      { return &Error{Kind: KindNetwork, Err: err} }
func fileSystem(err error) error   { return &Error{Kind: KindFileSystem, Err: err} }
