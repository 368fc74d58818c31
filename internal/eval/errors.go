package eval

import (
	"errors"
	"fmt"
)

// Exit codes for the three top-level error kinds.
const (
	ExitEvalFailure = 1
	ExitConfig      = 2
	ExitRuntime     = 3
)

// ErrorKind classifies a framework error for exit-code mapping.
type ErrorKind int

const (
	// KindConfig covers bad or missing configuration and invalid
	// invocations.
	KindConfig ErrorKind = iota
	// KindRuntime covers unexpected framework failures such as
	// unreadable fixtures or corrupt run files.
	KindRuntime
	// KindEvalFailure means the suite ran successfully but failed its
	// gate.
	KindEvalFailure
)

// FrameworkError is a classified error carrying a fixed exit code.
type FrameworkError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *FrameworkError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *FrameworkError) Unwrap() error { return e.Err }

// NewConfigError reports a configuration problem (exit 2).
func NewConfigError(format string, args ...any) *FrameworkError {
	return &FrameworkError{Kind: KindConfig, Msg: fmt.Sprintf(format, args...)}
}

// NewRuntimeError reports an unexpected framework failure (exit 3).
func NewRuntimeError(format string, args ...any) *FrameworkError {
	return &FrameworkError{Kind: KindRuntime, Msg: fmt.Sprintf(format, args...)}
}

// WrapRuntime wraps an underlying error as a runtime failure.
func WrapRuntime(err error, format string, args ...any) *FrameworkError {
	return &FrameworkError{Kind: KindRuntime, Msg: fmt.Sprintf(format, args...), Err: err}
}

// NewEvalFailure reports a gate failure (exit 1).
func NewEvalFailure(format string, args ...any) *FrameworkError {
	return &FrameworkError{Kind: KindEvalFailure, Msg: fmt.Sprintf(format, args...)}
}

// ExitCode maps an error to its process exit code. Unclassified errors
// count as runtime failures.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var fe *FrameworkError
	if errors.As(err, &fe) {
		switch fe.Kind {
		case KindConfig:
			return ExitConfig
		case KindEvalFailure:
			return ExitEvalFailure
		}
	}
	return ExitRuntime
}
