package slides

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies pipeline failures.
type ErrorKind int

const (
	KindInitializationFailed ErrorKind = iota + 1
	KindRenderFailed
	KindThemeComposeFailed
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindInitializationFailed:
		return "initialization failed"
	case KindRenderFailed:
		return "render failed"
	case KindThemeComposeFailed:
		return "theme compose failed"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrInitializationFailed = errors.New("initialization failed")
	ErrRenderFailed         = errors.New("render failed")
	ErrThemeComposeFailed   = errors.New("theme compose failed")
	ErrTimeout              = errors.New("timeout")
)

// Error is a classified pipeline failure.
type Error struct {
	Kind ErrorKind
	// Op is the operation that failed, e.g. "initialize" or "render".
	Op string
	// Problems lists custom CSS validation problems for KindThemeComposeFailed.
	Problems []string
	Err      error
}

// NewError creates an Error of the given kind.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if len(e.Problems) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(e.Problems, "; "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInitializationFailed:
		return e.Kind == KindInitializationFailed
	case ErrRenderFailed:
		return e.Kind == KindRenderFailed
	case ErrThemeComposeFailed:
		return e.Kind == KindThemeComposeFailed
	case ErrTimeout:
		return e.Kind == KindTimeout
	}
	return false
}

// KindOf returns the kind of err, or 0 when err is not a pipeline error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsRetryable reports whether retrying the same request may succeed without
// explicit re-activation. Initialization failures need re-activation and
// invalid custom CSS needs a corrected input.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindRenderFailed, KindTimeout:
		return true
	default:
		return false
	}
}

// TimeoutOrCause converts a deadline error into a KindTimeout error and
// anything else into the given kind.
func TimeoutOrCause(kind ErrorKind, op string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(KindTimeout, op, err)
	}
	return NewError(kind, op, err)
}

// ComposeError builds a KindThemeComposeFailed error from validation problems.
func ComposeError(themeID string, problems []string) *Error {
	return &Error{
		Kind:     KindThemeComposeFailed,
		Op:       "compose",
		Problems: problems,
		Err:      fmt.Errorf("custom css for theme %q is invalid", themeID),
	}
}
