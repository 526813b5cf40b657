package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/John-Robertt/submerge/internal/model"
)

func TestWriteError_JSONShapeAndHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, http.StatusBadRequest, model.AppError{
		Code:    "INVALID_ARGUMENT",
		Message: "limit 必须是正整数",
		Stage:   "validate_request",
		Snippet: "many",
	})

	if got, want := rr.Code, http.StatusBadRequest; got != want {
		t.Fatalf("status = %d, want %d", got, want)
	}
	if got, want := rr.Header().Get("Content-Type"), "application/json; charset=utf-8"; got != want {
		t.Fatalf("Content-Type = %q, want %q", got, want)
	}

	var resp model.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nbody=%q", err, rr.Body.String())
	}
	if resp.Error.Code != "INVALID_ARGUMENT" {
		t.Fatalf("code = %q, want %q", resp.Error.Code, "INVALID_ARGUMENT")
	}
	if resp.Error.Snippet != "many" {
		t.Fatalf("snippet = %q, want %q", resp.Error.Snippet, "many")
	}

	var raw map[string]map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &raw)
	if _, ok := raw["error"]["line"]; ok {
		t.Fatalf("unset line should be omitted: %s", rr.Body.String())
	}
}

func TestWriteYAML_Headers(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteYAML(rr, "# original: 1\nproxies: []\n")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got, want := rr.Header().Get("Content-Type"), "text/yaml; charset=utf-8"; got != want {
		t.Fatalf("Content-Type = %q, want %q", got, want)
	}
	if got := rr.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("Cache-Control = %q", got)
	}
}
