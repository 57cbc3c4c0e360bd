package app

import (
	"errors"
	"fmt"
	"strings"
)

// Application errors.
var (
	// ErrQuit is returned by key handling when the user asked to leave.
	// Run treats it as a clean exit.
	ErrQuit = errors.New("quit requested")

	// ErrAlreadyRunning is returned by a second concurrent Run.
	ErrAlreadyRunning = errors.New("application already running")

	// ErrNoBackend is returned by New without a backend.
	ErrNoBackend = errors.New("no terminal backend")
)

// OperationError describes a failed operation on a target, such as
// loading a shader file or rendering a frame in a given mode.
type OperationError struct {
	Op      string // load, render, reload
	Target  string // path or mode name
	Context string // subsystem, e.g. "shader"
	Err     error
}

// NewOperationError creates an OperationError.
func NewOperationError(op, target string, err error) *OperationError {
	return &OperationError{Op: op, Target: target, Err: err}
}

// WithContext sets the subsystem the operation ran in. Nil-safe.
func (e *OperationError) WithContext(ctx string) *OperationError {
	if e != nil {
		e.Context = ctx
	}
	return e
}

func (e *OperationError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Target != "" {
		b.WriteByte(' ')
		b.WriteString(e.Target)
	}
	if e.Context != "" {
		fmt.Fprintf(&b, " (%s)", e.Context)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches the same *OperationError or anything the wrapped error matches.
func (e *OperationError) Is(target error) bool {
	if e == nil {
		return false
	}
	if t, ok := target.(*OperationError); ok {
		return e == t
	}
	return errors.Is(e.Err, target)
}

// ComponentError describes a failure inside one component (backend,
// capability, config, shader) while performing an action.
type ComponentError struct {
	Component string
	Action    string
	Err       error
}

// NewComponentError creates a ComponentError.
func NewComponentError(component, action string, err error) *ComponentError {
	return &ComponentError{Component: component, Action: action, Err: err}
}

func (e *ComponentError) Error() string {
	if e == nil {
		return ""
	}
	parts := []string{e.Component}
	if e.Action != "" {
		parts = append(parts, e.Action)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *ComponentError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches the same *ComponentError or anything the wrapped error matches.
func (e *ComponentError) Is(target error) bool {
	if e == nil {
		return false
	}
	if t, ok := target.(*ComponentError); ok {
		return e == t
	}
	return errors.Is(e.Err, target)
}

// FramePanicError is returned by Run when rendering a frame panicked.
// The terminal is restored before Run returns it.
type FramePanicError struct {
	Frame uint64
	Mode  string
	Value any
	Stack string
}

func (e *FramePanicError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("frame %d (%s): panic: %v", e.Frame, e.Mode, e.Value)
	if e.Stack != "" {
		msg += "\n" + e.Stack
	}
	return msg
}

// Unwrap exposes the panic value when it was an error.
func (e *FramePanicError) Unwrap() error {
	if e == nil {
		return nil
	}
	err, _ := e.Value.(error)
	return err
}

// ShutdownError collects the failures of the teardown steps Run performs
// after the loop exits. Each step still runs when an earlier one failed.
type ShutdownError struct {
	errs []error
}

// Add records a failed step. Nil is ignored.
func (e *ShutdownError) Add(err error) {
	if err != nil {
		e.errs = append(e.errs, err)
	}
}

// Len returns the number of failed steps.
func (e *ShutdownError) Len() int {
	return len(e.errs)
}

// Unwrap returns every recorded failure for errors.Is and errors.As.
func (e *ShutdownError) Unwrap() []error {
	return e.errs
}

func (e *ShutdownError) Error() string {
	switch len(e.errs) {
	case 0:
		return "shutdown"
	case 1:
		return "shutdown: " + e.errs[0].Error()
	}
	msgs := make([]string, len(e.errs))
	for i, err := range e.errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("shutdown: %d errors: %s", len(e.errs), strings.Join(msgs, "; "))
}

// Err returns nil when no step failed.
func (e *ShutdownError) Err() error {
	if len(e.errs) == 0 {
		return nil
	}
	return e
}
