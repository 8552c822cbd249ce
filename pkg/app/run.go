// Package app provides the entry point shared by the modgate commands.
package app

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/flemzord/modgate/internal/config"
	"github.com/flemzord/modgate/internal/redact"
	"github.com/flemzord/modgate/internal/reload"
	"github.com/flemzord/modgate/internal/telemetry"
)

const telemetryShutdownTimeout = 5 * time.Second

// RunParams configures the main application loop. Empty fields fall back to
// the MODGATE_* environment and then to the defaults.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	ConfigPath string

	// DataDir overrides the persistent data directory.
	DataDir string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// PollInterval is the config file watch interval. Zero uses the
	// watcher default.
	PollInterval time.Duration
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func Run(params RunParams) error {
	return RunContext(context.Background(), params)
}

// RunContext loads configuration, starts all components, and blocks until
// ctx is done or a shutdown signal is received. SIGHUP and config file
// changes trigger a live reload of components that implement core.Reloader.
func RunContext(ctx context.Context, params RunParams) error {
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	level, err := env.Level()
	if err != nil {
		return err
	}
	redactor := redact.New()
	logger := NewLogger(os.Stderr, level, env.JSONLogs(), redactor)

	cfgPath := cmp.Or(params.ConfigPath, env.ConfigPath)
	if cfgPath == "" {
		if cfgPath, err = ResolveConfigPath(); err != nil {
			return err
		}
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	dataDir := cmp.Or(params.DataDir, env.DataDir, DefaultDataDir())
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	shutdownTelemetry, err := telemetry.Setup(ctx, env.OTelEndpoint, cmp.Or(params.Version, "dev"))
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	inst, err := Build(cfg, cfgPath, dataDir, logger, redactor)
	if err != nil {
		return err
	}
	if err := inst.App.Start(); err != nil {
		return err
	}
	logger.Info("modgate started",
		"version", cmp.Or(params.Version, "dev"),
		"config", cfgPath,
		"components", len(inst.IDs),
	)

	// --- signal handling ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	// --- file watcher ---
	watchCtx, watchCancel := context.WithCancel(ctx)
	defer watchCancel()
	watcher := reload.NewWatcher(reload.WatcherConfig{
		Path:         cfgPath,
		PollInterval: params.PollInterval,
	})
	watcher.Start(watchCtx)
	defer watcher.Stop()
	go reload.Follow(watchCtx, watcher, inst.Reload, logger)

	// --- main loop ---
	for {
		select {
		case <-ctx.Done():
			logger.Info("context done, shutting down")
			inst.App.Stop()
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				logger.Info("SIGHUP received, reloading configuration")
				if err := inst.Reload.HandleReload(watchCtx, cfgPath); err != nil {
					logger.Error("reload failed", "error", err)
				}
				continue
			}
			logger.Info("shutdown signal received", "signal", sig.String())
			inst.App.Stop()
			logger.Info("shutdown complete")
			return nil
		}
	}
}

// Check loads the configuration at path and provisions every component
// without starting it. It returns the component IDs.
func Check(path string, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	dataDir, err := os.MkdirTemp("", "modgate-check-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dataDir)

	inst, err := Build(cfg, path, dataDir, logger, nil)
	if err != nil {
		return nil, err
	}
	inst.App.Discard()
	return inst.IDs, nil
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/modgate/modgate.yaml, then
// ~/.config/modgate/modgate.yaml, then ./modgate.yaml.
func ResolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "modgate", "modgate.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "modgate", "modgate.yaml"))
	}

	candidates = append(candidates, "modgate.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}

// DefaultDataDir returns the default persistent data directory:
// $XDG_DATA_HOME/modgate, or ~/.local/share/modgate.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, "modgate")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "modgate")
}
