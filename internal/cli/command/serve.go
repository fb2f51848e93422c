package command

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/brainsync/internal/brain"
	"github.com/yndnr/brainsync/internal/brainsync"
	"github.com/yndnr/brainsync/internal/config"
	"github.com/yndnr/brainsync/internal/infra/buildinfo"
	"github.com/yndnr/brainsync/internal/infra/confloader"
	"github.com/yndnr/brainsync/internal/infra/shutdown"
	"github.com/yndnr/brainsync/internal/storage"
	"github.com/yndnr/brainsync/internal/telemetry/logger"
	"github.com/yndnr/brainsync/internal/telemetry/metric"
)

// ShutdownTimeout bounds the shutdown hooks of serve.
const ShutdownTimeout = 30 * time.Second

// ServeCommand runs a brain kept in sync with the document store until
// SIGINT or SIGTERM.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Load the brain and keep it persisted until interrupted",
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	ctx := c.Context

	build := buildinfo.Get()
	e.log.Info("starting brainctl",
		"version", build.Version,
		"commit", build.Commit,
		"go_version", build.GoVersion,
		"backend", e.cfg.Backend,
		"collection", e.cfg.Collection,
		"mongodb_url", config.Sanitize(e.cfg).MongoDB.URL)

	metrics := metric.NewRegistry()

	gw, err := e.openGateway(ctx)
	if err != nil {
		return err
	}
	if bs, ok := gw.(*storage.BadgerStore); ok {
		bs.RegisterMetrics(metrics.Registerer())
	}

	b := brain.New(e.log)

	opts := adapterOptions(e)
	opts.Metrics = metrics
	if _, err := brainsync.Connect(ctx, b, gw, opts); err != nil {
		gw.Close(context.Background())
		return fmt.Errorf("load brain: %w", err)
	}

	h := shutdown.NewHandler(ShutdownTimeout)

	// Closing the brain flushes a final save and closes the adapter.
	h.OnShutdown(func(ctx context.Context) error {
		e.log.Info("closing brain")
		b.Close()
		return nil
	})

	if e.cfg.Metrics.Addr != "" {
		srv := &http.Server{
			Addr:              e.cfg.Metrics.Addr,
			Handler:           metricsMux(metrics),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			e.log.Info("metrics listening", "addr", e.cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				e.log.Error("metrics server failed", "error", err)
			}
		}()
		h.OnShutdown(func(ctx context.Context) error {
			e.log.Info("shutting down metrics server")
			return srv.Shutdown(ctx)
		})
	}

	if e.flags.Config != "" {
		w, err := watchConfig(e, b)
		if err != nil {
			e.log.Warn("config reload disabled", "error", err)
		} else {
			h.OnShutdown(func(context.Context) error { return w.Stop() })
		}
	}

	go func() {
		<-ctx.Done()
		h.Trigger()
	}()

	e.log.Info("brain ready")
	return h.Wait()
}

func metricsMux(metrics *metric.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// watchConfig reloads the log level and save interval when the config file
// changes. Other settings need a restart.
func watchConfig(e *env, b *brain.Brain) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(e.log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(e.flags.Config); err != nil {
		w.Stop()
		return nil, err
	}

	w.OnChange(func(path string) {
		cfg, err := config.Load(path)
		if err != nil {
			e.log.Warn("config reload failed", "path", path, "error", err)
			return
		}
		if !e.flags.Verbose {
			logger.SetLevel(cfg.Log.Level)
		}
		b.ResetSaveInterval(cfg.Save.Interval)
		e.log.Info("config reloaded",
			"log_level", logger.GetLevel(),
			"save_interval", cfg.Save.Interval)
	})
	w.StartAsync()
	return w, nil
}
