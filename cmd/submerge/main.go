// Package main implements the submerge CLI: an HTTP server and one-shot
// commands around the subscription aggregate.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/submerge/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "submerge",
	Short:         "Merge proxy subscriptions into one Clash document",
	Long:          "submerge fetches several proxy subscriptions, normalizes and deduplicates their nodes, filters and renames them, and emits a single Clash-style YAML document.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	envFiles  []string
	logLevel  string
	logFormat string
)

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "环境文件（默认 .env，不存在时忽略）")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别：debug/info/warn/error（覆盖 LOG_LEVEL）")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "日志格式：text/json（覆盖 LOG_FORMAT）")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads .env files and the environment, applies the persistent
// flags and validates the result.
func loadConfig() (config.Config, error) {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.FromEnv(os.LookupEnv)
	if err != nil {
		return config.Config{}, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	return cfg, nil
}

func newLogger(w io.Writer, format, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
