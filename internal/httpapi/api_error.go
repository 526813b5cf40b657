package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/John-Robertt/submerge/internal/merge"
	"github.com/John-Robertt/submerge/internal/model"
	"github.com/John-Robertt/submerge/internal/render"
)

// APIError is used by the HTTP layer for request validation and a few
// HTTP-specific errors.
type APIError struct {
	Status   int
	AppError model.AppError
	Cause    error
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *APIError) Unwrap() error { return e.Cause }

func apiError(status int, app model.AppError, cause error) error {
	return &APIError{Status: status, AppError: app, Cause: cause}
}

func requestError(code, message, hint string) error {
	return apiError(http.StatusBadRequest, model.AppError{
		Code:    code,
		Message: message,
		Stage:   "validate_request",
		Hint:    hint,
	}, nil)
}

// writeErrorFromErr renders err and counts it. Batch failures are plain text
// so subscription clients show them verbatim; everything else is JSON.
func (m *httpMetrics) writeErrorFromErr(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	var ae *APIError
	if errors.As(err, &ae) {
		m.incAppError(ae.AppError.Stage, ae.AppError.Code)
		WriteError(w, ae.Status, ae.AppError)
		return
	}

	var be *merge.BatchError
	if errors.As(err, &be) {
		m.incAppError(be.AppError.Stage, be.AppError.Code)
		WriteText(w, http.StatusBadRequest, batchErrorText(be))
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		app := model.AppError{
			Code:    "TIMEOUT",
			Message: "聚合请求超时",
			Stage:   "merge",
		}
		m.incAppError(app.Stage, app.Code)
		WriteError(w, http.StatusGatewayTimeout, app)
		return
	}

	var re *render.RenderError
	if errors.As(err, &re) {
		m.incAppError(re.AppError.Stage, re.AppError.Code)
		WriteError(w, http.StatusInternalServerError, re.AppError)
		return
	}

	// Fallback: internal bug.
	app := model.AppError{
		Code:    "INTERNAL_ERROR",
		Message: "服务端内部错误",
		Stage:   "internal",
		Hint:    err.Error(),
	}
	m.incAppError(app.Stage, app.Code)
	WriteError(w, http.StatusInternalServerError, app)
}

func batchErrorText(be *merge.BatchError) string {
	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(be.AppError.Code)
	b.WriteString(": ")
	b.WriteString(be.AppError.Message)
	b.WriteByte('\n')
	if be.AppError.Hint != "" {
		b.WriteString(be.AppError.Hint)
		b.WriteByte('\n')
	}
	return b.String()
}
