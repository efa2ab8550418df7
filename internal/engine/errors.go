package engine

import (
	"errors"
	"fmt"

	"github.com/wpine215/a32nx/internal/ir"
)

// RuntimeError is a fatal error raised while handling a host event. The
// event loop stops at the first RuntimeError; nothing is retried.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Seq is the tick sequence number, zero outside a tick.
	Seq int64

	// Stage is where in the tick the error happened.
	Stage Stage

	// Variable is the variable involved, if any.
	Variable ir.Variable

	// Err is the underlying cause.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	ErrCodeHostReadFailed  RuntimeErrorCode = "HOST_READ_FAILED"
	ErrCodeHostWriteFailed RuntimeErrorCode = "HOST_WRITE_FAILED"
	ErrCodeModelStepFailed RuntimeErrorCode = "MODEL_STEP_FAILED"
	ErrCodeNonFiniteValue  RuntimeErrorCode = "NON_FINITE_VALUE"

	// ErrCodeNotProvided is a model read of a host variable that was never
	// registered as provided.
	ErrCodeNotProvided RuntimeErrorCode = "NOT_PROVIDED"

	// ErrCodeUnknownVariable is a model access to an aspect variable no rule
	// or binding declared.
	ErrCodeUnknownVariable RuntimeErrorCode = "UNKNOWN_VARIABLE"

	ErrCodeRecordFailed RuntimeErrorCode = "RECORD_FAILED"

	// ErrCodeReentrantEvent is a Handle call made while another event is
	// being handled.
	ErrCodeReentrantEvent RuntimeErrorCode = "REENTRANT_EVENT"
)

// Stage locates a runtime error within event handling.
type Stage string

const (
	StageRead     Stage = "read"
	StagePreTick  Stage = "pre_tick"
	StageStep     Stage = "step"
	StagePostTick Stage = "post_tick"
	StageFlush    Stage = "flush"
	StageRecord   Stage = "record"
	StageDispatch Stage = "dispatch"
)

// PhaseStage returns the stage of a rule phase.
func PhaseStage(p ir.Phase) Stage {
	if p == ir.PostTick {
		return StagePostTick
	}
	return StagePreTick
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.Seq != 0 && e.Variable.Valid():
		msg = fmt.Sprintf("%s (seq=%d, stage=%s, variable=%s)", msg, e.Seq, e.Stage, e.Variable)
	case e.Seq != 0:
		msg = fmt.Sprintf("%s (seq=%d, stage=%s)", msg, e.Seq, e.Stage)
	case e.Variable.Valid():
		msg = fmt.Sprintf("%s (variable=%s)", msg, e.Variable)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsRuntimeError reports whether err is a RuntimeError with the given code.
// An empty code matches any RuntimeError.
func IsRuntimeError(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return code == "" || re.Code == code
	}
	return false
}

// NewHostReadError wraps a failed host read.
func NewHostReadError(v ir.Variable, err error) *RuntimeError {
	return &RuntimeError{
		Code:     ErrCodeHostReadFailed,
		Message:  "host read failed",
		Stage:    StageRead,
		Variable: v,
		Err:      err,
	}
}

// NewHostWriteError wraps a failed host write.
func NewHostWriteError(v ir.Variable, err error) *RuntimeError {
	return &RuntimeError{
		Code:     ErrCodeHostWriteFailed,
		Message:  "host write failed",
		Stage:    StageFlush,
		Variable: v,
		Err:      err,
	}
}

// NewNonFiniteReadError reports a host variable that read as NaN or an
// infinity. The slot keeps its previous value.
func NewNonFiniteReadError(v ir.Variable, value float64) *RuntimeError {
	return &RuntimeError{
		Code:     ErrCodeNonFiniteValue,
		Message:  fmt.Sprintf("host returned %v", value),
		Stage:    StageRead,
		Variable: v,
	}
}

// NewNonFiniteError reports a rule that produced NaN or an infinity.
func NewNonFiniteError(r ir.Rule, value float64) *RuntimeError {
	return &RuntimeError{
		Code:     ErrCodeNonFiniteValue,
		Message:  fmt.Sprintf("rule %q produced %v", r.String(), value),
		Stage:    PhaseStage(r.Phase),
		Variable: r.Destination,
	}
}
