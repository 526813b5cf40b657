package template

import (
	"errors"
	"fmt"

	"github.com/John-Robertt/submerge/internal/model"
)

// TemplateError reports a base document that could not be loaded. Message
// carries the text shown in the output header.
type TemplateError struct {
	AppError model.AppError
	Cause    error
}

func (e *TemplateError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *TemplateError) Unwrap() error { return e.Cause }

func newTemplateError(code, message, locator string, cause error) *TemplateError {
	return &TemplateError{
		AppError: model.AppError{
			Code:    code,
			Message: message,
			Stage:   "load_template",
			URL:     locator,
		},
		Cause: cause,
	}
}

// Reason is the diagnostic text for a failed load.
func Reason(err error) string {
	var te *TemplateError
	if errors.As(err, &te) {
		return te.AppError.Message
	}
	return err.Error()
}
