package fetch

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/John-Robertt/submerge/internal/decode"
	"github.com/John-Robertt/submerge/internal/model"
)

const dataScheme = "data:"

// IsDataURI reports whether locator carries its payload inline.
func IsDataURI(locator string) bool {
	return len(locator) >= len(dataScheme) && strings.EqualFold(locator[:len(dataScheme)], dataScheme)
}

// DecodeDataURI returns the payload of "data:[mediatype][;base64],payload".
func DecodeDataURI(kind Kind, locator string) (string, error) {
	meta, payload, ok := strings.Cut(locator[len(dataScheme):], ",")
	if !ok {
		return "", dataError(kind, locator, "data URI 缺少逗号分隔的内容", nil)
	}
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		b, err := decode.DecodeBase64(payload)
		if err != nil {
			return "", dataError(kind, locator, "data URI 的 base64 内容无效", err)
		}
		return string(b), nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return "", dataError(kind, locator, "data URI 的内容编码无效", err)
	}
	return text, nil
}

func dataError(kind Kind, locator, message string, cause error) *FetchError {
	return &FetchError{
		Status: http.StatusBadRequest,
		AppError: model.AppError{
			Code:    "INVALID_ARGUMENT",
			Message: message,
			Stage:   kind.stage(),
			URL:     truncate(locator, 64),
		},
		Cause: cause,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...(%d bytes)", s[:n], len(s))
}
