package core

import (
	"errors"
	"fmt"
)

var (
	// ErrPrecondition marks programmer errors: the caller broke a contract and
	// the cache has no recovery policy for it.
	ErrPrecondition = errors.New("precondition violated")

	ErrDescriptorPoolExhausted = errors.New("descriptor pool exhausted")
	ErrPipelineLayoutMissing   = errors.New("pipeline layout missing, descriptors must be realized first")
	ErrMissingVertexShader     = errors.New("no vertex shader bound")

	// ErrNativeCreation is returned when the driver refuses to create an object.
	ErrNativeCreation = errors.New("native object creation failed")

	ErrInvalidConfig = errors.New("invalid configuration")
)

// PreconditionError reports which operation saw a broken precondition.
// It matches ErrPrecondition as well as its wrapped cause.
type PreconditionError struct {
	Op  string
	Err error
}

func NewPreconditionError(op string, err error) *PreconditionError {
	return &PreconditionError{Op: op, Err: err}
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, ErrPrecondition, e.Err)
}

func (e *PreconditionError) Unwrap() error { return e.Err }

func (e *PreconditionError) Is(target error) bool {
	return target == ErrPrecondition
}

// NativeError carries the failed native call and its result string.
type NativeError struct {
	Call   string
	Result string
}

func (e *NativeError) Error() string {
	return fmt.Sprintf("%s failed with %s", e.Call, e.Result)
}

func (e *NativeError) Unwrap() error { return ErrNativeCreation }
