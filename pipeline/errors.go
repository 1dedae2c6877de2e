// ABOUTME: Sentinel errors returned by the engine's configuration and lookup operations.
// ABOUTME: Callers match them with errors.Is; messages carry the offending names.
package pipeline

import "errors"

var (
	ErrNilStep         = errors.New("step is nil")
	ErrEmptyStepName   = errors.New("step name is empty")
	ErrDuplicateStep   = errors.New("step name already registered")
	ErrStepNotFound    = errors.New("step not found")
	ErrInvalidPosition = errors.New("step position out of range")
	ErrUnsatisfiedKey  = errors.New("required context key is never produced")
	ErrRunNotFound     = errors.New("workflow run not found")
)
