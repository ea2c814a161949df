package handler

import (
	"fmt"
	"runtime/debug"
)

// PanicError is returned when a recovered operation panicked.
type PanicError struct {
	Operation string
	Value     any
	Stack     string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.Value)
}

// SafeExecute runs fn and converts a panic into a *PanicError.
// The panic is logged with its stack under the operation name.
func SafeExecute(logger Logger, operation string, fn func() error) error {
	_, err := SafeExecuteWithResult(logger, operation, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// SafeExecuteWithResult is SafeExecute for functions that return a value.
func SafeExecuteWithResult[T any](logger Logger, operation string, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := string(debug.Stack())
			if logger != nil {
				logger.Error("panic_recovered",
					"operation", operation,
					"panic", fmt.Sprintf("%v", r),
					"stack", stack,
				)
			}
			err = &PanicError{Operation: operation, Value: r, Stack: stack}
		}
	}()
	return fn()
}
