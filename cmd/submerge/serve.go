package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/submerge/internal/config"
	"github.com/John-Robertt/submerge/internal/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long:  "Serves the aggregate on GET / and GET /sub, plus /healthz and /metrics. Settings come from the environment; flags override them.",
	RunE:  runServe,
}

var (
	serveListen            string
	serveReadHeaderTimeout time.Duration
	serveRunTimeout        time.Duration
	serveFetchTimeout      time.Duration
	serveShutdownTimeout   time.Duration
	serveCacheTTL          time.Duration
)

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "HTTP 监听地址（覆盖 LISTEN_ADDR）")
	serveCmd.Flags().DurationVar(&serveReadHeaderTimeout, "read-header-timeout", 5*time.Second, "HTTP ReadHeaderTimeout（请求头读取超时）")
	serveCmd.Flags().DurationVar(&serveRunTimeout, "run-timeout", 60*time.Second, "单次聚合的总超时（包含远程拉取）")
	serveCmd.Flags().DurationVar(&serveFetchTimeout, "fetch-timeout", 0, "单次远程拉取的超时（覆盖 FETCH_TIMEOUT）")
	serveCmd.Flags().DurationVar(&serveShutdownTimeout, "shutdown-timeout", 10*time.Second, "收到退出信号后的优雅退出等待时间")
	serveCmd.Flags().DurationVar(&serveCacheTTL, "cache-ttl", 0, "成功结果的缓存时间（覆盖 CACHE_TTL）")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyServeFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: httpapi.NewHandler(a.service, httpapi.Options{
			RunTimeout: serveRunTimeout,
			Logger:     logger,
			Registry:   a.registry,
		}),
		ReadHeaderTimeout: serveReadHeaderTimeout,
	}

	logger.Info("listening", "addr", "http://"+cfg.ListenAddr)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")

		shCtx, cancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			logger.Warn("graceful shutdown failed", "err", err)
			_ = srv.Close()
		}

		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}
	return nil
}

func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.ListenAddr = serveListen
	}
	if flags.Changed("fetch-timeout") {
		cfg.FetchTimeout = serveFetchTimeout
	}
	if flags.Changed("cache-ttl") {
		cfg.CacheTTL = serveCacheTTL
	}
}
