// Package convert sequences the per-request conversion pipeline: create an
// isolated workspace, ingest the multipart upload into it, invoke the
// external engine, discover and validate the produced PDF, read it back.
// The workspace is destroyed on every exit path by a single deferred
// release, so no outcome — success, any stage failure, or a client
// disconnect mid-upload — can leak a directory.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"os"
	"time"

	"github.com/hazyhaar/convd/audit"
	"github.com/hazyhaar/convd/engine"
	"github.com/hazyhaar/convd/ingest"
	"github.com/hazyhaar/convd/workspace"
)

// Result is a completed conversion: the artifact's basename as produced by
// the engine, and its bytes. All-or-nothing; there is no partial result.
type Result struct {
	RequestID string
	Filename  string
	Data      []byte
}

// Service owns the conversion pipeline for the lifetime of the process.
type Service struct {
	workspaces *workspace.Manager
	conv       engine.Converter
	logger     *slog.Logger
	auditor    *audit.Recorder
}

// Option configures a Service.
type Option func(*Service)

// WithAudit attaches a conversion trail recorder.
func WithAudit(rec *audit.Recorder) Option {
	return func(s *Service) { s.auditor = rec }
}

// New creates a Service converting into workspaces under ws, using conv as
// the rendering engine.
func New(ws *workspace.Manager, conv engine.Converter, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		workspaces: ws,
		conv:       conv,
		logger:     logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Convert runs one request through the pipeline. Stages are strictly
// sequential; the returned error is one of the typed pipeline errors
// (ingest.ErrNoFile, ingest.ErrStream, engine.LaunchError,
// engine.ExitError, or this package's sentinels) for the caller to map to
// a response.
func (s *Service) Convert(ctx context.Context, mr *multipart.Reader) (*Result, error) {
	start := time.Now()

	ws, err := s.workspaces.Create()
	if err != nil {
		s.logger.Error("workspace create failed", "error", err)
		s.record(ctx, audit.Entry{Outcome: "workspace", DurationMs: since(start)})
		return nil, fmt.Errorf("%w: %v", ErrWorkspace, err)
	}
	defer ws.Destroy()

	log := s.logger.With("request_id", ws.ID)

	up, err := ingest.Receive(mr, ws)
	if err != nil {
		log.Error("ingest failed", "error", err)
		s.record(ctx, audit.Entry{RequestID: ws.ID, Outcome: outcomeOf(err), DurationMs: since(start)})
		return nil, err
	}

	log.Info("converting", "input", up.Name, "bytes", up.Size)

	if err := s.conv.Convert(ctx, up.Path, ws.Dir, ws.ProfileDir()); err != nil {
		var ee *engine.ExitError
		if errors.As(err, &ee) {
			log.Error("engine failed", "error", err, "output", ee.Output)
		} else {
			log.Error("engine failed", "error", err)
		}
		s.record(ctx, audit.Entry{RequestID: ws.ID, InputName: up.Name, Outcome: outcomeOf(err), DurationMs: since(start)})
		return nil, err
	}

	path, name, err := resolveArtifact(ws.Dir)
	if err != nil {
		log.Error("no artifact after successful engine exit", "error", err)
		s.record(ctx, audit.Entry{RequestID: ws.ID, InputName: up.Name, Outcome: outcomeOf(err), DurationMs: since(start)})
		return nil, err
	}

	if err := validateArtifact(path); err != nil {
		log.Error("artifact validation failed", "artifact", name, "error", err)
		s.record(ctx, audit.Entry{RequestID: ws.ID, InputName: up.Name, OutputName: name, Outcome: outcomeOf(err), DurationMs: since(start)})
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Error("artifact read failed", "artifact", name, "error", err)
		s.record(ctx, audit.Entry{RequestID: ws.ID, InputName: up.Name, OutputName: name, Outcome: "read", DurationMs: since(start)})
		return nil, fmt.Errorf("%w: %v", ErrReadArtifact, err)
	}

	log.Info("converted", "input", up.Name, "output", name, "bytes", len(data), "elapsed_ms", since(start))
	s.record(ctx, audit.Entry{
		RequestID:   ws.ID,
		InputName:   up.Name,
		OutputName:  name,
		OutputBytes: int64(len(data)),
		Outcome:     "ok",
		DurationMs:  since(start),
	})

	return &Result{RequestID: ws.ID, Filename: name, Data: data}, nil
}

func (s *Service) record(ctx context.Context, e audit.Entry) {
	if s.auditor == nil {
		return
	}
	// The request context may already be canceled (client gone); the trail
	// row must still land.
	s.auditor.Record(context.WithoutCancel(ctx), e)
}

// outcomeOf maps a pipeline error to its audit class.
func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ingest.ErrNoFile):
		return "no_file"
	case errors.Is(err, ingest.ErrStream):
		return "stream"
	case engine.IsLaunch(err):
		return "engine_launch"
	case engine.IsExit(err):
		return "engine_exit"
	case errors.Is(err, ErrNoArtifact):
		return "no_artifact"
	case errors.Is(err, ErrBadArtifact):
		return "bad_artifact"
	default:
		return "error"
	}
}

func since(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
