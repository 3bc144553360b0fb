// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shelfside Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"

	"github.com/shelfside/shelfside/internal/config"
	"github.com/shelfside/shelfside/internal/extlua"
	"github.com/shelfside/shelfside/internal/host"
	"github.com/shelfside/shelfside/internal/logging"
	"github.com/shelfside/shelfside/internal/manifest"
	"github.com/shelfside/shelfside/internal/observability"
	"github.com/shelfside/shelfside/pkg/errutil"
	"github.com/shelfside/shelfside/pkg/extension"
)

// NewRunCmd creates the run subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start an extension runtime session",
		Long: `Load extension manifests, mount the extensions, render the active set
once, and (when metrics are enabled) keep serving observability endpoints
until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(resolveConfigFile(), cmd.Flags())
			if err != nil {
				return err
			}
			return runSession(cmd, cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("extensions.dir", config.Default().Extensions.Dir, "extension manifests directory")
	flags.String("log.format", config.Default().Log.Format, "log format: json or text")
	flags.String("log.level", config.Default().Log.Level, "log level: debug, info, warn, error")
	flags.Bool("metrics.enabled", config.Default().Metrics.Enabled, "serve Prometheus metrics")
	flags.String("metrics.addr", config.Default().Metrics.Addr, "metrics listen address")
	flags.String("app.environment", config.Default().App.Environment, "condition environment name")

	return cmd
}

func runSession(cmd *cobra.Command, cfg config.Config) error {
	logging.SetDefault("shelfside", version, cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))
	logger := slog.Default()

	exts, err := loadExtensions(cfg.Extensions.Dir)
	if err != nil {
		return err
	}

	ctx := &extension.Context{
		Theme: extension.Theme{Variant: "light"},
		Route: "/",
		App: extension.AppInfo{
			Name:        "shelfside",
			Version:     version,
			Environment: cfg.App.Environment,
		},
	}

	provider := host.New(ctx, exts,
		host.WithEnabledByDefault(cfg.Extensions.EnabledByDefault),
		host.WithAutoCleanup(cfg.Extensions.AutoCleanup),
		host.WithProviderLogger(logger))
	defer provider.Close()

	for _, name := range cfg.Extensions.Disabled {
		provider.Disable(name)
	}

	var server *observability.Server
	if cfg.Metrics.Enabled {
		server, err = startMetrics(cmd.Context(), cfg.Metrics.Addr, provider)
		if err != nil {
			errutil.LogError(logger, "failed to start metrics server", err)
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Stop(stopCtx)
		}()
	}

	results := provider.Renders()
	if server != nil {
		server.Metrics().RecordActive(len(results))
	}

	stats := provider.Stats()
	cmd.Printf("extensions: %d registered, %d enabled, %d active\n",
		stats.Total, stats.Enabled, stats.Active)
	for _, r := range results {
		status := "ok"
		if r.Failed {
			status = "failed"
		}
		cmd.Printf("  [%s] %-20s %s\n", status, r.Name, r.Position)
	}

	if server == nil {
		return nil
	}

	// Stay up for scrapes until interrupted.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case <-cmd.Context().Done():
	}
	return nil
}

// loadExtensions discovers manifests and builds Lua extensions. Invalid
// extensions are skipped with a warning.
func loadExtensions(dir string) ([]extension.Extension, error) {
	discovered, err := manifest.NewLoader(dir).Discover()
	if err != nil {
		return nil, err
	}

	exts := make([]extension.Extension, 0, len(discovered))
	for _, d := range discovered {
		ext, err := extlua.New(d.Manifest, d.Dir)
		if err != nil {
			slog.Warn("skipping extension",
				"extension", d.Manifest.Name,
				"error", err)
			continue
		}
		exts = append(exts, ext)
	}
	return exts, nil
}

// startMetrics starts the observability server, retrying the bind with
// fibonacci backoff. A quick restart can race the previous process still
// holding the port.
func startMetrics(ctx context.Context, addr string, provider *host.Provider) (*observability.Server, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var server *observability.Server
	backoff := retry.WithMaxRetries(4, retry.NewFibonacci(250*time.Millisecond))
	err := retry.Do(ctx, backoff, func(_ context.Context) error {
		s := observability.NewServer(addr, func() bool { return true })
		if _, err := s.Start(); err != nil {
			return retry.RetryableError(err)
		}
		server = s
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start metrics server on %s: %w", addr, err)
	}

	server.Metrics().Observe(provider.Manager())
	return server, nil
}
