package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/raysh454/observer/internal/analyzer"
	"github.com/raysh454/observer/internal/archive"
	"github.com/raysh454/observer/internal/diff"
	"github.com/raysh454/observer/internal/fetcher"
	"github.com/raysh454/observer/internal/logging"
	"github.com/raysh454/observer/internal/notify"
	"github.com/raysh454/observer/internal/pipeline"
	"github.com/raysh454/observer/internal/report"
	"github.com/raysh454/observer/internal/scheduler"
	"github.com/raysh454/observer/internal/server"
	"github.com/raysh454/observer/internal/tracker"
	"github.com/raysh454/observer/internal/utils"
	"github.com/raysh454/observer/internal/webclient"
)

// Application is the global runtime state container. It owns every
// long-lived component and closes them in Close.
type Application struct {
	Config *Config
	Logger logging.Logger

	WebClient   webclient.WebClient
	Snapshots   *tracker.SnapshotStore
	Diffs       *tracker.DiffStore
	Analyzer    *analyzer.Adapter
	Archive     *archive.Archive
	Coordinator *pipeline.Coordinator
	Scheduler   *scheduler.Scheduler
	Server      *server.Server
	Registry    *prometheus.Registry

	closers []func() error
}

// NewApplication wires every component from cfg. Optional collaborators
// (archive, webhook and NATS notifiers) are only built when configured.
func NewApplication(cfg *Config, logger logging.Logger) (*Application, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger = logging.OrNop(logger)
	a := &Application{Config: cfg, Logger: logger}

	targets, err := utils.CanonicalizeTargets(cfg.Scheduler.Targets, utils.TargetOptions)
	if err != nil {
		return nil, fmt.Errorf("scheduler targets: %w", err)
	}
	cfg.Scheduler.Targets = targets

	wc, err := webclient.NewWebClient(cfg.WebClient, logger)
	if err != nil {
		return nil, fmt.Errorf("new webclient: %w", err)
	}
	a.WebClient = wc
	a.closers = append(a.closers, wc.Close)

	a.Snapshots = tracker.NewSnapshotStore(cfg.Tracker.SnapshotCapacity)
	a.Diffs = tracker.NewDiffStore(cfg.Tracker.DiffCapacity)

	gen, err := analyzer.NewGenerator(cfg.Analysis, wc, logger)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("new generator: %w", err)
	}
	if cfg.Analysis.APIKey == "" {
		logger.Warn("no analysis API key configured; analyses will be unavailable",
			logging.Field{Key: "provider", Value: string(cfg.Analysis.Provider)})
	}
	a.Analyzer = analyzer.NewAdapter(cfg.Analysis, gen, logger)

	notifier, err := a.buildNotifier(wc)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	deps := pipeline.Deps{
		Fetcher:   fetcher.New(cfg.Fetcher, a.Snapshots, wc, logger),
		Snapshots: a.Snapshots,
		Diffs:     a.Diffs,
		Engine:    diff.NewEngine(cfg.Diff),
		Analyzer:  a.Analyzer,
		Reporter:  report.New(cfg.Report, wc, logger),
		Notifier:  notifier,
	}

	if cfg.Archive.Path != "" {
		arc, err := archive.Open(cfg.Archive.Path, logger)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("open archive: %w", err)
		}
		a.Archive = arc
		a.closers = append(a.closers, arc.Close)
		deps.Sink = arc
	}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	deps.Metrics = pipeline.NewMetrics(a.Registry)

	a.Coordinator = pipeline.NewCoordinator(cfg.Pipeline, deps, logger)
	a.Scheduler = scheduler.New(cfg.Scheduler, a.Coordinator, logger)

	srvDeps := server.Deps{
		Coordinator: a.Coordinator,
		Snapshots:   a.Snapshots,
		Diffs:       a.Diffs,
		Analysis:    a.Analyzer,
		Gatherer:    a.Registry,
	}
	if a.Archive != nil {
		srvDeps.Archive = a.Archive
	}
	a.Server = server.New(cfg.Server, srvDeps, logger)

	return a, nil
}

func (a *Application) buildNotifier(wc webclient.WebClient) (notify.Notifier, error) {
	var multi notify.Multi
	cfg := a.Config.Notify
	if cfg.WebhookURL != "" {
		multi = append(multi, notify.NewWebhookNotifier(cfg.WebhookURL, cfg.Timeout, wc, a.Logger))
	}
	if cfg.NATSURL != "" {
		n, err := notify.NewNATSNotifier(cfg.NATSURL, cfg.NATSSubject, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("new nats notifier: %w", err)
		}
		a.closers = append(a.closers, n.Close)
		multi = append(multi, n)
	}
	if len(multi) == 0 {
		return nil, nil
	}
	return multi, nil
}

// Serve runs the HTTP server and the scheduler until ctx is done, then
// shuts both down.
func (a *Application) Serve(ctx context.Context) error {
	if a == nil {
		return errors.New("application is nil")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		a.Scheduler.Start(ctx)
	}()

	srv := a.Server.HTTPServer()
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("http server listening", logging.Field{Key: "addr", Value: srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		cancel()
	}

	a.Logger.Info("application shutdown initiated")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Logger.Warn("http server shutdown returned error", logging.Field{Key: "error", Value: err})
	}
	<-schedDone
	return serveErr
}

// Close releases every resource in reverse construction order.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
