// Package junshu is the public API for embedding the Junshu compliance
// workflow engine.
//
// Consumers import this package to construct and extend the server
// without forking it:
//
//	app, err := junshu.New(
//	    junshu.WithVersion(version),
//	    junshu.WithLogger(logger),
//	    junshu.WithArchiver(myStore{}),
//	)
//	if err != nil { ... }
//	if err := app.Run(ctx); err != nil { ... }
//
// The import graph enforces a strict no-cycle rule: junshu (root)
// imports internal/*, but internal/* never imports junshu (root).
// Public types (Scenario, VerifyResult) are standalone structs with no
// internal imports; conversion helpers live here because this is the
// only file that sees both sides of the boundary.
package junshu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"github.com/ashita-ai/junshu/internal/catalog"
	"github.com/ashita-ai/junshu/internal/config"
	"github.com/ashita-ai/junshu/internal/correction"
	"github.com/ashita-ai/junshu/internal/cycle"
	"github.com/ashita-ai/junshu/internal/mcp"
	"github.com/ashita-ai/junshu/internal/model"
	"github.com/ashita-ai/junshu/internal/server"
	"github.com/ashita-ai/junshu/internal/storage"
	"github.com/ashita-ai/junshu/internal/telemetry"
	"github.com/ashita-ai/junshu/internal/verify"
	"github.com/ashita-ai/junshu/internal/workflow"
)

// App is the Junshu server lifecycle. Construct with New(), run with Run().
// App has no public fields — use New() options to configure it.
type App struct {
	cfg          config.Config
	db           *storage.DB
	manager      *workflow.Manager
	srv          *server.Server
	otelShutdown telemetry.Shutdown
	logger       *slog.Logger
	version      string
}

// New initialises the Junshu server. It opens the database, loads the
// scenario catalog, wires all subsystems, and returns a ready-to-run App.
// It does NOT start any goroutines or accept HTTP connections — call Run().
func New(opts ...Option) (*App, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	// Load configuration (env vars), then apply option overrides.
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.port != 0 {
		cfg.Port = o.port
	}
	if o.databasePath != "" {
		cfg.DatabasePath = o.databasePath
	}
	if o.randSeedSet {
		cfg.RandSeed = o.randSeed
	}
	version := o.version
	if version == "" {
		version = "dev"
	}

	logger.Info("junshu starting", "version", version, "port", cfg.Port)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(context.Background(), cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	// Open the SQLite archive store (schema applied on open).
	db, err := storage.Open(context.Background(), cfg.DatabasePath, logger)
	if err != nil {
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("storage: %w", err)
	}

	// Scenario catalog. A zero seed without an explicit WithRandSeed
	// derives one from the clock so restarts don't replay selections.
	seed := cfg.RandSeed
	if seed == 0 && !o.randSeedSet {
		seed = uint64(time.Now().UnixNano()) //nolint:gosec // not security-sensitive
	}
	var cat *catalog.Catalog
	if len(o.scenarios) > 0 {
		cat, err = catalog.New(toModelScenarios(o.scenarios), seed)
	} else {
		cat, err = catalog.LoadFile(cfg.ScenarioFile, seed)
	}
	if err != nil {
		_ = db.Close()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("catalog: %w", err)
	}
	logger.Info("scenario catalog loaded", "scenarios", cat.Len(), "file", cfg.ScenarioFile)

	// Cycle collaborators — external overrides take priority.
	var archiver cycle.Archiver = db
	if o.archiver != nil {
		archiver = o.archiver
		logger.Info("archiver: external override")
	}
	var verifier cycle.Verifier = verify.New(cfg.VerifyThreshold, logger)
	if o.verifier != nil {
		verifier = &verifierAdapter{v: o.verifier}
		logger.Info("verifier: external override")
	}

	executor := cycle.New(archiver, verifier, logger)
	corrections := correction.New(logger)

	// Workflow manager. The SQLite store persists final reports.
	manager := workflow.New(cat, executor, corrections, db, logger)
	manager.SetDefaults(cfg.DefaultTargetCycles, cfg.DefaultTargetCompliance)

	// MCP server.
	mcpSrv := mcp.New(manager, version, logger)

	// HTTP server.
	srv := server.New(server.ServerConfig{
		Manager:             manager,
		Logger:              logger,
		DB:                  db,
		MCPServer:           mcpSrv.MCPServer(),
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	return &App{
		cfg:          cfg,
		db:           db,
		manager:      manager,
		srv:          srv,
		otelShutdown: otelShutdown,
		logger:       logger,
		version:      version,
	}, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled or a
// fatal server error occurs. On return, Shutdown is called automatically
// — callers should not call Shutdown separately.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := a.srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	return a.Shutdown(context.Background())
}

// Shutdown performs a graceful shutdown: stop accepting HTTP requests
// and drain in-flight, cancel active workflow runs and wait for their
// goroutines, then close the database and OTEL provider.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("junshu shutting down")

	httpCtx, cancel := context.WithTimeout(ctx, shutdownHTTPTimeout)
	if err := a.srv.Shutdown(httpCtx); err != nil {
		a.logger.Error("http shutdown error", "error", err)
	}
	cancel()

	runCtx, cancel := context.WithTimeout(ctx, shutdownRunTimeout)
	a.manager.Shutdown(runCtx)
	cancel()

	_ = a.otelShutdown(context.Background())
	if err := a.db.Close(); err != nil {
		a.logger.Error("database close error", "error", err)
	}

	a.logger.Info("junshu stopped")
	return nil
}

const (
	shutdownHTTPTimeout = 10 * time.Second
	shutdownRunTimeout  = 30 * time.Second
)

// ── Adapters and converters (this file imports both sides) ─────────────────────

// verifierAdapter wraps a public Verifier to satisfy cycle.Verifier.
type verifierAdapter struct {
	v Verifier
}

func (a *verifierAdapter) Verify(ctx context.Context, content, dataType, source, operation string) (verify.Result, error) {
	r, err := a.v.Verify(ctx, content, dataType, source, operation)
	if err != nil {
		return verify.Result{}, err
	}
	return verify.Result{
		IsVerified:      r.IsVerified,
		ConfidenceScore: r.ConfidenceScore,
		PrimaryScore:    r.ConfidenceScore,
		SecondaryScore:  r.ConfidenceScore,
		Model:           r.Model,
	}, nil
}

// toModelScenarios converts public Scenarios to internal catalog input.
// Validation happens in catalog.New, not here.
func toModelScenarios(in []Scenario) []model.TestScenario {
	out := make([]model.TestScenario, len(in))
	for i, s := range in {
		out[i] = model.TestScenario{
			ID:                 s.ID,
			Name:               s.Name,
			Description:        s.Description,
			Category:           model.ScenarioCategory(s.Category),
			Priority:           s.Priority,
			InputData:          s.InputData,
			ExpectedOutcomes:   s.ExpectedOutcomes,
			ValidationCriteria: s.ValidationCriteria,
		}
	}
	return out
}
