package junshu

import "log/slog"

// Option configures an App.
type Option func(*resolvedOptions)

// resolvedOptions holds all overrides after applying options.
// Unexported — callers use the With* functions.
type resolvedOptions struct {
	port         int
	databasePath string
	logger       *slog.Logger
	version      string
	archiver     Archiver
	verifier     Verifier
	scenarios    []Scenario
	randSeed     uint64
	randSeedSet  bool
}

// WithPort overrides the TCP port from config (JUNSHU_PORT env var).
func WithPort(port int) Option {
	return func(o *resolvedOptions) { o.port = port }
}

// WithDatabasePath overrides the SQLite database path from config
// (JUNSHU_DB_PATH env var). Use ":memory:" for an ephemeral store.
func WithDatabasePath(path string) Option {
	return func(o *resolvedOptions) { o.databasePath = path }
}

// WithLogger sets the structured logger for the App.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string reported in the health endpoint and logs.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithArchiver replaces the embedded SQLite archive store for cycle
// execution. The SQLite store is still opened and still backs workflow
// reports and the health check. Only the last call wins.
func WithArchiver(a Archiver) Option {
	return func(o *resolvedOptions) { o.archiver = a }
}

// WithVerifier replaces the built-in dual-model heuristic verifier.
// Only the last call wins.
func WithVerifier(v Verifier) Option {
	return func(o *resolvedOptions) { o.verifier = v }
}

// WithScenarios replaces the scenario catalog (built-in defaults or the
// JUNSHU_SCENARIO_FILE config). The slice must be non-empty and every
// scenario must validate; New returns an error otherwise.
func WithScenarios(scenarios []Scenario) Option {
	return func(o *resolvedOptions) { o.scenarios = scenarios }
}

// WithRandSeed fixes the scenario-selection seed for reproducible runs,
// overriding JUNSHU_RAND_SEED. A seed of 0 is valid.
func WithRandSeed(seed uint64) Option {
	return func(o *resolvedOptions) {
		o.randSeed = seed
		o.randSeedSet = true
	}
}
