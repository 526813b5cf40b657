// Package fetch retrieves source documents over HTTP (or inline data: URIs),
// runs them through the ingest strategies and caches the outcome.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/John-Robertt/submerge/internal/model"
)

type Kind int

const (
	KindSource Kind = iota
	KindTemplate
)

func (k Kind) stage() string {
	switch k {
	case KindSource:
		return "fetch_source"
	case KindTemplate:
		return "fetch_template"
	default:
		return "fetch"
	}
}

const (
	DefaultTimeout      = 5 * time.Second
	DefaultMaxBytes     = 10 * 1024 * 1024
	DefaultMaxRedirects = 5
)

type Options struct {
	Timeout      time.Duration // default 5s
	MaxBytes     int64         // default 10MiB
	MaxRedirects int           // default 5
	Client       *http.Client  // transport override; timeout and redirects are still applied
}

// Headers sent with every request. Several subscription providers refuse
// non-browser clients.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language": "zh-CN,zh;q=0.9,en;q=0.8",
	"Cache-Control":   "max-age=0",
}

// FetchError describes a failed retrieval. Status is the HTTP status this
// process would answer with; Upstream is the status the source answered with
// (408 for a local timeout, 0 when no response was received).
type FetchError struct {
	Status   int
	Upstream int
	AppError model.AppError
	Cause    error
}

func (e *FetchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// Reason is the short per-source diagnostic, e.g. "HTTP 503 Service Unavailable".
func (e *FetchError) Reason() string {
	if e == nil {
		return ""
	}
	if e.Upstream != 0 {
		return fmt.Sprintf("HTTP %d %s", e.Upstream, http.StatusText(e.Upstream))
	}
	return e.AppError.Message
}

// Retryable reports whether the upstream failure is likely transient.
func (e *FetchError) Retryable() bool {
	if e == nil {
		return false
	}
	switch e.Upstream {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusTooManyRequests:
		return true
	}
	return false
}

var (
	errTooManyRedirects   = errors.New("too many redirects")
	errRedirectBadScheme  = errors.New("redirect target scheme is not http/https")
	errInvalidURLOrScheme = errors.New("invalid url or scheme")
)

func FetchText(ctx context.Context, kind Kind, rawURL string) (string, error) {
	return FetchTextWithOptions(ctx, kind, rawURL, Options{})
}

func FetchTextWithOptions(ctx context.Context, kind Kind, rawURL string, opt Options) (string, error) {
	stage := kind.stage()

	timeout := opt.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	maxRedirects := opt.MaxRedirects
	if maxRedirects == 0 {
		maxRedirects = DefaultMaxRedirects
	}
	maxBytes := opt.MaxBytes
	if maxBytes == 0 {
		maxBytes = DefaultMaxBytes
	}
	if maxBytes <= 0 {
		return "", &FetchError{
			Status: http.StatusBadRequest,
			AppError: model.AppError{
				Code:    "INVALID_ARGUMENT",
				Message: "响应大小上限必须大于 0",
				Stage:   stage,
				URL:     rawURL,
			},
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil || u == nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", &FetchError{
			Status: http.StatusBadRequest,
			AppError: model.AppError{
				Code:    "INVALID_ARGUMENT",
				Message: "仅允许 http/https URL",
				Stage:   stage,
				URL:     rawURL,
			},
			Cause: errors.Join(errInvalidURLOrScheme, err),
		}
	}

	transport := http.DefaultTransport
	if opt.Client != nil && opt.Client.Transport != nil {
		transport = opt.Client.Transport
	}
	client := &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// 1st redirect => len(via)==1, 5th redirect => len(via)==5.
			if len(via) > maxRedirects {
				return errTooManyRedirects
			}
			if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
				return errRedirectBadScheme
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &FetchError{
			Status: http.StatusBadRequest,
			AppError: model.AppError{
				Code:    "INVALID_ARGUMENT",
				Message: "请求 URL 不合法",
				Stage:   stage,
				URL:     rawURL,
			},
			Cause: err,
		}
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}

		if errors.Is(err, errTooManyRedirects) {
			return "", &FetchError{
				Status: http.StatusBadGateway,
				AppError: model.AppError{
					Code:    "FETCH_FAILED",
					Message: fmt.Sprintf("重定向次数超过上限（>%d）", maxRedirects),
					Stage:   stage,
					URL:     rawURL,
				},
				Cause: err,
			}
		}
		if errors.Is(err, errRedirectBadScheme) {
			return "", &FetchError{
				Status: http.StatusBadRequest,
				AppError: model.AppError{
					Code:    "INVALID_ARGUMENT",
					Message: "重定向目标仅允许 http/https",
					Stage:   stage,
					URL:     rawURL,
				},
				Cause: err,
			}
		}
		if isTimeout(err) {
			return "", timeoutError(stage, rawURL, err)
		}
		return "", &FetchError{
			Status: http.StatusBadGateway,
			AppError: model.AppError{
				Code:    "FETCH_FAILED",
				Message: "拉取远程资源失败",
				Stage:   stage,
				URL:     rawURL,
			},
			Cause: err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &FetchError{
			Status:   http.StatusBadGateway,
			Upstream: resp.StatusCode,
			AppError: model.AppError{
				Code:    "FETCH_FAILED",
				Message: fmt.Sprintf("上游返回非 2xx 状态码：%d", resp.StatusCode),
				Stage:   stage,
				URL:     rawURL,
			},
		}
	}

	// Read at most maxBytes+1 to detect overflow deterministically.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		if isTimeout(err) {
			return "", timeoutError(stage, rawURL, err)
		}
		return "", &FetchError{
			Status: http.StatusBadGateway,
			AppError: model.AppError{
				Code:    "FETCH_FAILED",
				Message: "读取上游响应失败",
				Stage:   stage,
				URL:     rawURL,
			},
			Cause: err,
		}
	}
	if int64(len(body)) > maxBytes {
		return "", &FetchError{
			Status: http.StatusUnprocessableEntity,
			AppError: model.AppError{
				Code:    "TOO_LARGE",
				Message: fmt.Sprintf("远程资源过大（>%d bytes）", maxBytes),
				Stage:   stage,
				URL:     rawURL,
			},
		}
	}
	if !utf8.Valid(body) {
		return "", &FetchError{
			Status: http.StatusUnprocessableEntity,
			AppError: model.AppError{
				Code:    "FETCH_INVALID_UTF8",
				Message: "远程资源不是合法 UTF-8 文本",
				Stage:   stage,
				URL:     rawURL,
			},
		}
	}

	return string(body), nil
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// abandonedError reports a caller that stopped waiting for a retrieval.
func abandonedError(stage, rawURL string, err error) *FetchError {
	if errors.Is(err, context.DeadlineExceeded) {
		return timeoutError(stage, rawURL, err)
	}
	return &FetchError{
		Status: http.StatusServiceUnavailable,
		AppError: model.AppError{
			Code:    "FETCH_CANCELED",
			Message: "请求已取消",
			Stage:   stage,
			URL:     rawURL,
		},
		Cause: err,
	}
}

func timeoutError(stage, rawURL string, err error) *FetchError {
	return &FetchError{
		Status:   http.StatusGatewayTimeout,
		Upstream: http.StatusRequestTimeout,
		AppError: model.AppError{
			Code:    "FETCH_TIMEOUT",
			Message: "拉取远程资源超时",
			Stage:   stage,
			URL:     rawURL,
		},
		Cause: err,
	}
}
