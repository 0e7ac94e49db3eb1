// Package daemon implements the proxy process lifecycle.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"starbridge.xyz/starbridge/internal/config"
	"starbridge.xyz/starbridge/internal/log"
	"starbridge.xyz/starbridge/internal/metrics"
	"starbridge.xyz/starbridge/internal/plugin"
	"starbridge.xyz/starbridge/internal/proxy"
)

// Daemon wires configuration, logging, metrics, the interception engine
// and the proxy server together and manages their shutdown.
type Daemon struct {
	config     *config.Config
	configPath string

	manager       *plugin.Manager
	registry      *proxy.Registry
	server        *proxy.Server
	metricsServer *metrics.Server
	watcher       *config.Watcher

	sigChan chan os.Signal
}

// New loads configuration and creates a daemon instance.
func New(configPath string) (*Daemon, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &Daemon{config: cfg, configPath: configPath}, nil
}

// Start initializes and starts every component. Errors here are fatal to
// the process: without a listener or an activated interception engine the
// proxy is useless.
func (d *Daemon) Start() error {
	if err := log.Init(d.config.Log); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger := log.GetLogger()
	logger.WithFields(map[string]interface{}{
		"listen":   d.config.Listen,
		"upstream": d.config.Upstream,
	}).Info("starting starbridge")

	if err := d.writePIDFile(); err != nil {
		return err
	}

	if d.config.Metrics.Enabled {
		d.metricsServer = metrics.NewServer(d.config.Metrics.Listen, d.config.Metrics.Path)
		d.metricsServer.Start()
	}

	d.manager = plugin.NewManager(plugin.Default)
	d.registry = proxy.NewRegistry(d.config.Upstream, d.manager)

	if err := d.manager.Activate(&plugin.Env{Registry: d.registry}, handlerConfigs(d.config)); err != nil {
		return fmt.Errorf("failed to activate interception handlers: %w", err)
	}

	d.server = proxy.NewServer(d.config.Listen, d.config.MaxClients, d.registry)
	if err := d.server.Start(); err != nil {
		return fmt.Errorf("failed to start proxy: %w", err)
	}

	// Hot reload covers the log level only; addresses and plugin wiring
	// need a restart.
	watcher, err := config.NewWatcher(d.configPath, func(newCfg *config.Config) {
		if err := log.SetLevel(newCfg.Log.Level); err != nil {
			logger.WithError(err).Warn("ignoring invalid log level from reloaded config")
		}
	})
	if err != nil {
		logger.WithError(err).Warn("config watcher unavailable, hot reload disabled")
	} else {
		d.watcher = watcher
	}

	logger.Info("daemon started")
	return nil
}

// Run blocks until a shutdown signal arrives. SIGHUP re-reads the config
// file and applies the log level.
func (d *Daemon) Run() error {
	d.sigChan = make(chan os.Signal, 1)
	signal.Notify(d.sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	for sig := range d.sigChan {
		switch sig {
		case syscall.SIGTERM, syscall.SIGINT:
			log.GetLogger().WithField("signal", sig.String()).Info("shutdown signal received")
			d.Stop()
			return nil

		case syscall.SIGHUP:
			if cfg, err := config.Load(d.configPath); err != nil {
				log.GetLogger().WithError(err).Error("reload failed, keeping previous config")
			} else if err := log.SetLevel(cfg.Log.Level); err != nil {
				log.GetLogger().WithError(err).Warn("reloaded config has invalid log level")
			} else {
				log.GetLogger().WithField("level", cfg.Log.Level).Info("log level reloaded")
			}
		}
	}
	return nil
}

// Stop shuts everything down in reverse startup order.
func (d *Daemon) Stop() {
	logger := log.GetLogger()

	if d.watcher != nil {
		d.watcher.Close()
	}

	if d.server != nil {
		d.server.Stop()
	}

	if d.manager != nil {
		d.manager.Deactivate()
	}

	if d.metricsServer != nil {
		if err := d.metricsServer.Stop(context.Background()); err != nil {
			logger.WithError(err).Error("error stopping metrics server")
		}
	}

	if d.sigChan != nil {
		signal.Stop(d.sigChan)
	}

	if err := d.removePIDFile(); err != nil {
		logger.WithError(err).Error("error removing PID file")
	}

	logger.Info("daemon stopped")
}

// handlerConfigs converts the loaded plugin section into what the
// interception manager consumes.
func handlerConfigs(cfg *config.Config) map[string]plugin.HandlerConfig {
	out := make(map[string]plugin.HandlerConfig, len(cfg.Plugins))
	for name, pc := range cfg.Plugins {
		out[name] = plugin.HandlerConfig{Enabled: pc.Enabled, Options: pc.Options}
	}
	return out
}

func (d *Daemon) writePIDFile() error {
	if d.config.PIDFile == "" {
		return nil
	}
	data := []byte(strconv.Itoa(os.Getpid()) + "\n")
	if err := os.WriteFile(d.config.PIDFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write PID file %s: %w", d.config.PIDFile, err)
	}
	return nil
}

func (d *Daemon) removePIDFile() error {
	if d.config.PIDFile == "" {
		return nil
	}
	if err := os.Remove(d.config.PIDFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file %s: %w", d.config.PIDFile, err)
	}
	return nil
}
