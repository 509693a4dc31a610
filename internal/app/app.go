package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/matchwatch/livealert/external/betsite"
	"github.com/matchwatch/livealert/external/telegram"
	"github.com/matchwatch/livealert/internal/config"
	"github.com/matchwatch/livealert/internal/domain/alert"
	"github.com/matchwatch/livealert/internal/domain/rule"
	"github.com/matchwatch/livealert/internal/domain/user"
	cacherepo "github.com/matchwatch/livealert/internal/infrastructure/repository/cache"
	"github.com/matchwatch/livealert/internal/infrastructure/repository/memory"
	"github.com/matchwatch/livealert/internal/infrastructure/repository/postgres"
	"github.com/matchwatch/livealert/internal/interfaces/httpapi"
	basecache "github.com/matchwatch/livealert/internal/platform/cache"
	"github.com/matchwatch/livealert/internal/platform/logging"
	"github.com/matchwatch/livealert/internal/platform/resilience"
	"github.com/matchwatch/livealert/internal/usecase"
)

// App owns the monitor loop, the status HTTP server and their shared
// dependencies.
type App struct {
	cfg     config.Config
	logger  *logging.Logger
	db      *sqlx.DB
	monitor *usecase.MonitorService
	server  *http.Server
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	var db *sqlx.DB
	var rules rule.Repository
	var alerts alert.Repository
	var users user.Repository

	if cfg.DBURL != "" {
		var err error
		db, err = otelsqlx.Connect("postgres",
			normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary),
			otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
			otelsql.WithQueryFormatter(formatDBQueryForTrace),
		)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}

		rules = postgres.NewRuleRepository(db)
		alerts = postgres.NewAlertRepository(db)
		users = postgres.NewUserRepository(db)

		if cfg.CacheEnabled {
			store := basecache.NewStore(cfg.CacheTTL)
			rules = cacherepo.NewRuleRepository(rules, store)
			users = cacherepo.NewUserRepository(users, store)
		}
	} else {
		logger.Warn("DB_URL not set, using in-memory repositories; state is lost on restart")
		rules = memory.NewRuleRepository()
		alerts = memory.NewAlertRepository()
		users = memory.NewUserRepository()
	}

	source := betsite.NewClient(betsite.ClientConfig{
		BaseURL:    cfg.BetsiteBaseURL,
		Timeout:    cfg.BetsiteTimeout,
		MaxRetries: cfg.BetsiteMaxRetries,
		Logger:     logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.BetsiteCircuitEnabled,
			FailureThreshold: cfg.BetsiteCircuitFailureCount,
			OpenTimeout:      cfg.BetsiteCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.BetsiteCircuitHalfOpenMaxReq,
		},
	})

	health := usecase.NewHealthMonitor()

	monitor, err := usecase.NewMonitorService(usecase.MonitorParams{
		Config: usecase.MonitorConfig{
			PollInterval: cfg.PollInterval,
			GameDelay:    cfg.GameDelay,
			FetchWorkers: cfg.FetchWorkers,
		},
		Source:    source,
		Rules:     rules,
		Alerts:    alerts,
		Users:     users,
		Notifier:  telegram.NewNotifier(logger),
		Exporter:  usecase.NewCSVExporter(cfg.ExportDir, cfg.ExportFilename, logger),
		Baselines: usecase.NewBaselineTracker(cfg.HalftimeConfirmWindow),
		Health:    health,
		Logger:    logger,
	})
	if err != nil {
		closeDB(db)
		return nil, fmt.Errorf("build monitor: %w", err)
	}

	handler := httpapi.NewHandler(alerts, health, logger)
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(handler, logger),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if server.Addr == "" {
		closeDB(db)
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return &App{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		monitor: monitor,
		server:  server,
	}, nil
}

// Run starts the monitor loop and the HTTP server, then blocks until the
// context is cancelled or either component fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)

	go func() {
		a.logger.Info("monitor starting",
			"poll_interval", a.cfg.PollInterval.String(),
			"fetch_workers", a.cfg.FetchWorkers,
		)
		errCh <- a.monitor.Run(ctx)
	}()

	go func() {
		a.logger.Info("http server starting", "addr", a.cfg.HTTPAddr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case err := <-errCh:
		runErr = err
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown failed", "error", err)
	}

	closeDB(a.db)
	return runErr
}

func closeDB(db *sqlx.DB) {
	if db != nil {
		_ = db.Close()
	}
}
