package convert

import "errors"

// Sentinel errors for pipeline outcomes. Ingestion and engine failures
// keep their own types (ingest.ErrNoFile, ingest.ErrStream,
// engine.LaunchError, engine.ExitError); these cover the stages owned by
// the orchestrator itself.
var (
	// ErrWorkspace means the per-request directory could not be created.
	ErrWorkspace = errors.New("workspace unavailable")

	// ErrNoArtifact means the engine exited successfully but left no PDF
	// in the workspace.
	ErrNoArtifact = errors.New("no PDF artifact produced")

	// ErrBadArtifact means the produced file is not a readable PDF.
	ErrBadArtifact = errors.New("produced artifact is not a valid PDF")

	// ErrReadArtifact means the produced PDF could not be read back.
	ErrReadArtifact = errors.New("reading produced PDF failed")
)
