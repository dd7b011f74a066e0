package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/polzovatel/reader-autopilot/internal/agent"
	"github.com/polzovatel/reader-autopilot/internal/browser"
	"github.com/polzovatel/reader-autopilot/internal/logging"
	"github.com/polzovatel/reader-autopilot/internal/metrics"
	"github.com/polzovatel/reader-autopilot/internal/queue"
	"github.com/polzovatel/reader-autopilot/internal/screens"
)

type runOptions struct {
	url         string
	search      string
	autoRead    bool
	metricsAddr string
}

func newRunCmd(a *app) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the app and react to every screen change until interrupted.",
		Long: `Opens the app in a mobile-emulated browser and dispatches every screen
change to the handler chain. Commands on stdin:

  search <title>   set the novel to look for
  auto on|off      toggle hands-free page turning
  quit             stop`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.url != "" {
				a.cfg.Browser.URL = opts.url
			}
			if opts.metricsAddr != "" {
				a.cfg.Metrics.Addr = opts.metricsAddr
			}
			if strings.TrimSpace(a.cfg.Browser.URL) == "" {
				return errors.New("no app url: pass --url or set browser.url")
			}
			return run(cmd.Context(), a, opts)
		},
	}
	cmd.Flags().StringVar(&opts.url, "url", "", "app url (overrides browser.url)")
	cmd.Flags().StringVar(&opts.search, "search", "", "initial search target")
	cmd.Flags().BoolVar(&opts.autoRead, "auto-read", false, "start with auto mode on")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	return cmd
}

func run(parent context.Context, a *app, opts runOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := a.cfg
	logger := a.logger

	var m *metrics.Metrics
	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		m = metrics.MustNew(reg)
		srv := serveMetrics(cfg.Metrics.Addr, reg, logging.Component(logger, "metrics"))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	launcher, err := browser.NewLauncher(ctx, cfg.Browser, logging.Component(logger, "browser"))
	if err != nil {
		return fmt.Errorf("browser init: %w", err)
	}
	defer launcher.Close()

	dev, err := launcher.NewDevice(ctx, cfg.Browser.URL)
	if err != nil {
		return fmt.Errorf("open app: %w", err)
	}
	defer dev.Close()
	defer func() {
		if n := dev.OpenSnapshots(); n != 0 {
			logger.Warn().Int64("open", n).Msg("snapshots not released")
		}
	}()

	loop := queue.NewLoop()
	d, err := agent.NewDispatcher(ctx, cfg.AgentConfig(), dev, loop,
		screens.Chain(cfg.ScreensConfig(), logging.Component(logger, "screens")), logger, m)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		loop.Run(ctx)
	}()

	if opts.search != "" {
		d.SetSearchTarget(opts.search)
	}
	if opts.autoRead {
		d.SetAutoMode(true)
	}
	if err := dev.Watch(d.OnScreenChanged); err != nil {
		stop()
		<-done
		return fmt.Errorf("watch screen: %w", err)
	}
	logger.Info().Str("url", cfg.Browser.URL).Str("version", Version).Msg("autopilot running")

	if console(ctx, os.Stdin, d, logging.Component(logger, "console")) {
		logger.Info().Msg("quit requested")
	}
	stop()
	<-done
	logger.Info().Uint64("generation", d.Generation()).Msg("autopilot stopped")
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info().Str("addr", addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server")
		}
	}()
	return srv
}
