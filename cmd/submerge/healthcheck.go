package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Probe a running server's /healthz",
	Long:  "Exits non-zero unless GET /healthz answers 200. Handy as a container HEALTHCHECK.",
	RunE:  runHealthcheckCmd,
}

var (
	healthcheckAddr    string
	healthcheckTimeout time.Duration
)

func init() {
	healthcheckCmd.Flags().StringVar(&healthcheckAddr, "addr", "", "服务地址（host:port、端口或 URL，默认 LISTEN_ADDR）")
	healthcheckCmd.Flags().DurationVar(&healthcheckTimeout, "timeout", 2*time.Second, "探测超时")

	rootCmd.AddCommand(healthcheckCmd)
}

func runHealthcheckCmd(_ *cobra.Command, _ []string) error {
	addr := healthcheckAddr
	if addr == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		addr = cfg.ListenAddr
	}
	u, err := deriveHealthzURL(addr)
	if err != nil {
		return err
	}
	return runHealthcheck(u, healthcheckTimeout)
}

// deriveHealthzURL turns a listen address into a probe URL. Wildcard hosts are
// probed on loopback.
func deriveHealthzURL(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", fmt.Errorf("empty address")
	}

	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		u, err := url.Parse(addr)
		if err != nil || u.Host == "" {
			return "", fmt.Errorf("invalid address %q", addr)
		}
		u.Path = strings.TrimSuffix(u.Path, "/") + "/healthz"
		u.RawQuery = ""
		u.Fragment = ""
		return u.String(), nil
	}

	host, port := "", addr
	if strings.Contains(addr, ":") {
		h, p, err := net.SplitHostPort(addr)
		if err != nil {
			return "", fmt.Errorf("invalid address %q: %w", addr, err)
		}
		host, port = h, p
	}
	if _, err := net.LookupPort("tcp", port); err != nil {
		return "", fmt.Errorf("invalid port in %q: %w", addr, err)
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + "/healthz", nil
}

func runHealthcheck(target string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck %s: %w", target, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck %s: unexpected status %d", target, resp.StatusCode)
	}
	return nil
}
