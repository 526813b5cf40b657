// Package config reads deployment settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/John-Robertt/submerge/internal/merge"
	"github.com/John-Robertt/submerge/internal/model"
)

type Config struct {
	ListenAddr string `validate:"required"`

	DefaultURL          string
	DefaultTemplateURL  string
	DefaultNameFilter   string
	DefaultTypeFilter   string
	DefaultServerFilter string

	ForceNameFilter   string
	ForceTypeFilter   string
	ForceServerFilter string

	CacheTTL     time.Duration `validate:"gte=0s"`
	FetchTimeout time.Duration `validate:"gte=100ms,lte=5m"`
	MaxSources   int           `validate:"gte=1,lte=1000"`
	MaxNodes     int           `validate:"gte=1"`
	DefaultLimit int           `validate:"gte=1"`

	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=text json"`
}

func Default() Config {
	return Config{
		ListenAddr:   "127.0.0.1:25500",
		CacheTTL:     1800 * time.Second,
		FetchTimeout: 5 * time.Second,
		MaxSources:   merge.DefaultMaxSources,
		MaxNodes:     merge.DefaultMaxNodes,
		DefaultLimit: merge.DefaultLimit,
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

type ConfigError struct {
	AppError model.AppError
	Cause    error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// LoadDotEnv loads the given files (".env" when none) into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return &ConfigError{
				AppError: model.AppError{
					Code:    "CONFIG_INVALID",
					Message: "无法读取环境文件",
					Stage:   "config",
					Snippet: p,
				},
				Cause: err,
			}
		}
	}
	return nil
}

// FromEnv starts from Default and applies every variable lookup finds.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	c := Default()

	strs := map[string]*string{
		"LISTEN_ADDR":           &c.ListenAddr,
		"DEFAULT_URL":           &c.DefaultURL,
		"DEFAULT_TEMPLATE_URL":  &c.DefaultTemplateURL,
		"DEFAULT_NAME_FILTER":   &c.DefaultNameFilter,
		"DEFAULT_TYPE_FILTER":   &c.DefaultTypeFilter,
		"DEFAULT_SERVER_FILTER": &c.DefaultServerFilter,
		"FORCE_NAME_FILTER":     &c.ForceNameFilter,
		"FORCE_TYPE_FILTER":     &c.ForceTypeFilter,
		"FORCE_SERVER_FILTER":   &c.ForceServerFilter,
		"LOG_LEVEL":             &c.LogLevel,
		"LOG_FORMAT":            &c.LogFormat,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	ints := map[string]*int{
		"MAX_SOURCES":   &c.MaxSources,
		"MAX_NODES":     &c.MaxNodes,
		"DEFAULT_LIMIT": &c.DefaultLimit,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return Config{}, envError(key, v, err)
		}
		*dst = n
	}

	durations := map[string]*time.Duration{
		"CACHE_TTL":     &c.CacheTTL,
		"FETCH_TIMEOUT": &c.FetchTimeout,
	}
	for key, dst := range durations {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		d, err := ParseSeconds(v)
		if err != nil {
			return Config{}, envError(key, v, err)
		}
		*dst = d
	}
	return c, nil
}

// ParseSeconds accepts a bare number of seconds ("1800") or a Go duration
// ("30m").
func ParseSeconds(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fields []string
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s=%s)", fe.Field(), fe.Tag(), fe.Param()))
			}
		}
		return &ConfigError{
			AppError: model.AppError{
				Code:    "CONFIG_INVALID",
				Message: "配置不合法",
				Stage:   "config",
				Hint:    strings.Join(fields, ", "),
			},
			Cause: err,
		}
	}
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return &ConfigError{
			AppError: model.AppError{
				Code:    "CONFIG_INVALID",
				Message: "监听地址不合法",
				Stage:   "config",
				Snippet: c.ListenAddr,
			},
			Cause: err,
		}
	}
	return nil
}

// Merge maps the settings onto the aggregate service policy.
func (c Config) Merge() merge.Config {
	return merge.Config{
		DefaultURL:          c.DefaultURL,
		DefaultTemplate:     c.DefaultTemplateURL,
		DefaultNameFilter:   c.DefaultNameFilter,
		DefaultTypeFilter:   c.DefaultTypeFilter,
		DefaultServerFilter: c.DefaultServerFilter,
		ForceNameFilter:     c.ForceNameFilter,
		ForceTypeFilter:     c.ForceTypeFilter,
		ForceServerFilter:   c.ForceServerFilter,
		CacheTTL:            c.CacheTTL,
		MaxSources:          c.MaxSources,
		MaxNodes:            c.MaxNodes,
		DefaultLimit:        c.DefaultLimit,
	}
}

func envError(key, value string, cause error) *ConfigError {
	return &ConfigError{
		AppError: model.AppError{
			Code:    "CONFIG_INVALID",
			Message: fmt.Sprintf("环境变量 %s 无法解析", key),
			Stage:   "config",
			Snippet: value,
		},
		Cause: cause,
	}
}
