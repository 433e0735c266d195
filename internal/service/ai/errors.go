package ai

import "fmt"

// ModelInvocationError reports a failed call to the language model.
type ModelInvocationError struct {
	Op  string
	Err error
}

func (e *ModelInvocationError) Error() string {
	return fmt.Sprintf("model %s failed: %v", e.Op, e.Err)
}

func (e *ModelInvocationError) Unwrap() error { return e.Err }
