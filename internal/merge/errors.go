package merge

import (
	"errors"
	"fmt"

	"github.com/John-Robertt/submerge/internal/compiler"
	"github.com/John-Robertt/submerge/internal/model"
)

// BatchError fails the whole request. Nothing is emitted alongside it.
type BatchError struct {
	AppError model.AppError
	Cause    error
}

func (e *BatchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *BatchError) Unwrap() error { return e.Cause }

func newBatchError(code, message, hint string) *BatchError {
	return &BatchError{
		AppError: model.AppError{
			Code:    code,
			Message: message,
			Stage:   "merge",
			Hint:    hint,
		},
	}
}

func codeOf(err error) string {
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		return ce.AppError.Code
	}
	return "COMPILE_ERROR"
}

func messageOf(err error) string {
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		return ce.AppError.Message
	}
	return err.Error()
}
