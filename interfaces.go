package junshu

import "context"

// Archiver is the archival collaborator driven by every workflow cycle.
// When provided via WithArchiver, replaces the embedded SQLite store for
// cycle execution (the SQLite store still backs reports and health).
// All methods must be safe for concurrent use: cycles from different
// runs call them in parallel.
type Archiver interface {
	// Archive stores content and returns an archive ID.
	Archive(ctx context.Context, content, source, operation string, metadata map[string]any) (string, error)
	// LogActivity records an agent-level event.
	LogActivity(ctx context.Context, agentID, kind, message string, data map[string]any) error
	// PendingVerifications reports how many archives await verification.
	PendingVerifications(ctx context.Context) (int, error)
	// MarkVerified records a verification confidence against an archive.
	MarkVerified(ctx context.Context, archiveID string, confidence float64) error
	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}

// Verifier scores content with a confidence in [0.0, 1.0].
// When provided via WithVerifier, replaces the built-in dual-model
// heuristic verifier. Verification failures (non-nil error) are
// recoverable cycle-level events, not run failures.
type Verifier interface {
	Verify(ctx context.Context, content, dataType, source, operation string) (VerifyResult, error)
}
