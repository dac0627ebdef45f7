package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	httpadapter "github.com/couchcryptid/control-room/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/control-room/internal/adapter/kafka"
	"github.com/couchcryptid/control-room/internal/adapter/simulator"
	"github.com/couchcryptid/control-room/internal/adapter/uart"
	"github.com/couchcryptid/control-room/internal/config"
	"github.com/couchcryptid/control-room/internal/display/console"
	"github.com/couchcryptid/control-room/internal/display/dashboard"
	"github.com/couchcryptid/control-room/internal/display/snapshot"
	"github.com/couchcryptid/control-room/internal/domain"
	"github.com/couchcryptid/control-room/internal/observability"
	"github.com/couchcryptid/control-room/internal/pipeline"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

type runOptions struct {
	showStatus bool
	stdout     io.Writer
	fs         afero.Fs
	extractor  pipeline.Extractor
	metrics    *observability.Metrics
}

// run wires the service for one display mode and blocks until shutdown.
func run(ctx context.Context, cfg *config.Config, m mode, opts runOptions) error {
	if opts.stdout == nil {
		opts.stdout = os.Stdout
	}
	if opts.fs == nil {
		opts.fs = afero.NewOsFs()
	}
	if opts.metrics == nil {
		opts.metrics = observability.NewMetrics()
	}
	metrics := opts.metrics

	logOut := observability.LogOutput(cfg, m == modeDashboard)
	defer logOut.Close()
	logger := observability.NewLogger(cfg, logOut)
	slog.SetDefault(logger)

	catalog, err := domain.LoadCatalog(opts.fs, cfg.CatalogPath)
	if err != nil {
		logger.Error("failed to load sensor catalog", "error", err)
		return err
	}
	table := domain.NewTable(catalog)
	monitor := pipeline.NewMonitor(table, cfg.StaleAfter, cfg.RefreshInterval, metrics)
	views := func() []domain.SensorView {
		return table.Views(domain.Now(), cfg.StaleAfter)
	}

	var snap *snapshot.Writer
	if cfg.SnapshotPath != "" {
		snap = snapshot.NewWriter(opts.fs, cfg.SnapshotPath)
	}

	checks := httpadapter.Checks{}
	extractor := opts.extractor
	var source *simulator.Switch
	if extractor == nil {
		reader := uart.NewReader(cfg, logger)
		defer func() {
			if err := reader.Close(); err != nil {
				logger.Error("serial port close error", "error", err)
			}
		}()
		sim := simulator.New(catalog, cfg.SimulateInterval, cfg.SimulateSeed)
		if cfg.Simulate {
			logger.Info("simulator enabled", "interval", cfg.SimulateInterval, "seed", cfg.SimulateSeed)
		}
		source = simulator.NewSwitch(reader, sim, cfg.Simulate)
		checks = append(checks, httpadapter.Check{Name: "serial", Checker: source})
		extractor = source
	}

	var (
		onUpdate func(domain.Reading)
		dash     *dashboard.Dashboard
	)
	switch m {
	case modeDashboard:
		var dashOpts []dashboard.Option
		if snap != nil {
			dashOpts = append(dashOpts, dashboard.WithSnapshot(func() (string, error) {
				if err := snap.Write(monitor.Snapshot(), domain.Now()); err != nil {
					return "", err
				}
				return "snapshot written to " + snap.Path(), nil
			}))
		}
		if source != nil {
			dashOpts = append(dashOpts, dashboard.WithToggle(func() string {
				if source.Toggle() {
					logger.Info("telemetry source switched", "source", simulator.PortName)
					return "source: simulator"
				}
				logger.Info("telemetry source switched", "source", cfg.SerialPort)
				return "source: serial port " + cfg.SerialPort
			}))
		}
		dash = dashboard.New(cfg.DisplayTitle, logger, dashOpts...)
		monitor.Subscribe(dash.Update)
		onUpdate = func(domain.Reading) { dash.Update(views()) }
	default:
		printer := console.NewPrinter(opts.stdout, console.WithStatus(opts.showStatus))
		if err := printer.Print(views()); err != nil {
			return fmt.Errorf("print table: %w", err)
		}
		onUpdate = func(domain.Reading) {
			if err := printer.Print(views()); err != nil {
				logger.Warn("print table failed", "error", err)
			}
		}
	}

	var relays []pipeline.Loader
	if cfg.RelayEnabled() {
		writer := kafkaadapter.NewWriter(cfg, logger, metrics)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		relays = append(relays, writer)
		logger.Info("kafka relay enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	p := pipeline.New(extractor, pipeline.NewTransformer(catalog), pipeline.NewTableLoader(table, onUpdate), logger, metrics,
		pipeline.WithRelays(relays...))
	checks = append(httpadapter.Checks{{Name: "pipeline", Checker: p}}, checks...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return p.Run(gctx)
	})
	g.Go(func() error {
		return monitor.Run(gctx)
	})
	if dash != nil {
		g.Go(func() error {
			defer cancel()
			return dash.Run(gctx)
		})
	}
	if cfg.HTTPAddr != "" {
		srv := httpadapter.NewServer(cfg.HTTPAddr, checks, logger)
		g.Go(func() error {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
			return nil
		})
	}

	err = g.Wait()
	logger.Info("shutting down")

	if snap != nil {
		if err := snap.Write(views(), domain.Now()); err != nil {
			logger.Error("final snapshot failed", "error", err)
		} else {
			logger.Info("snapshot written", "path", snap.Path())
		}
	}

	logger.Info("shutdown complete")
	return err
}
