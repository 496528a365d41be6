package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/waxal-backend/internal/config"
	"github.com/yungbote/waxal-backend/internal/data/records"
	repos "github.com/yungbote/waxal-backend/internal/data/repos/collection"
	apphttp "github.com/yungbote/waxal-backend/internal/http"
	"github.com/yungbote/waxal-backend/internal/modules/collection"
	"github.com/yungbote/waxal-backend/internal/observability"
	"github.com/yungbote/waxal-backend/internal/platform/logger"
	"github.com/yungbote/waxal-backend/internal/platform/vars"
)

type App struct {
	Log      *logger.Logger
	Cfg      *config.Config
	Vars     *vars.Map
	Metrics  *observability.Metrics
	Clients  Clients
	Records  RecordBackend
	Repos    repos.Repos
	Workflow collection.Usecases
	Server   *apphttp.Server

	shutdownOtel func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}

	log.Info("Loading variables...", "path", cfg.Vars.Path)
	v, err := vars.LoadFile(cfg.Vars.Path)
	if err != nil {
		return nil, fmt.Errorf("load vars: %w", err)
	}

	shutdownOtel := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.Otel.Enabled,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
		Version:     cfg.App.Version,
		Endpoint:    cfg.Otel.Endpoint,
		Headers:     cfg.Otel.Headers,
		Insecure:    cfg.Otel.Insecure,
		SampleRatio: cfg.Otel.SampleRatio,
	})

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(observability.MetricsConfig{
			ScrapeInterval: cfg.Metrics.ScrapeInterval,
			WithRuntime:    cfg.Metrics.Runtime,
		})
	}

	a := &App{
		Log:          log,
		Cfg:          cfg,
		Vars:         v,
		Metrics:      metrics,
		shutdownOtel: shutdownOtel,
	}

	backend, err := wireRecords(ctx, log, cfg.Records, v)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Records = backend
	a.Repos = repos.NewRepos(backend.Store, log)

	clients, err := wireClients(ctx, log, cfg, v)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Clients = clients

	a.Workflow = wireWorkflow(log, metrics, a.Repos, v, clients)
	a.Server = wireServer(log, cfg, metrics, a.Workflow, clients)
	return a, nil
}

// Start launches the background collectors.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Records.DB != nil {
		a.Metrics.StartDBCollector(ctx, a.Log, a.Records.DB)
	}
	if addr := a.Cfg.Redis.Addr; addr != "" {
		a.Metrics.StartRedisCollector(ctx, a.Log, addr, a.Cfg.Redis.Password, a.Cfg.Redis.DB)
	}
}

// Run serves HTTP until ctx is cancelled, then drains in-flight turns.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Log.Info("Server listening", "addr", a.Cfg.Server.Addr())
		return a.Server.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		a.Log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Cfg.Server.ShutdownTimeout)
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close()
	a.Records.Close(a.Log)
	if a.shutdownOtel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.shutdownOtel(ctx); err != nil {
			a.Log.Warn("OTel shutdown failed", "error", err)
		}
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

// tableNames is used in startup logs.
func tableNames() []string {
	out := make([]string, 0, len(records.Tables))
	for _, t := range records.Tables {
		out = append(out, string(t))
	}
	return out
}
