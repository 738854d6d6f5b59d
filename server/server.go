// Package server wires the HTTP surface of the conversion gateway: the
// static landing page, the health endpoint, and the authenticated
// /convert upload handler.
package server

import (
	"context"
	"embed"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/convd/config"
	"github.com/hazyhaar/convd/convert"
	"github.com/hazyhaar/convd/engine"
	"github.com/hazyhaar/convd/ingest"
	"github.com/hazyhaar/convd/shield"
)

//go:embed static
var staticFS embed.FS

// ConversionService is the part of the pipeline the HTTP layer depends on.
type ConversionService interface {
	Convert(ctx context.Context, mr *multipart.Reader) (*convert.Result, error)
}

// Server maps HTTP requests onto the conversion pipeline.
type Server struct {
	cfg    *config.Config
	svc    ConversionService
	logger *slog.Logger
}

// New creates a Server for the given configuration and pipeline.
func New(cfg *config.Config, svc ConversionService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, svc: svc, logger: logger}
}

// Router builds the chi router with the full middleware stack. /health
// bypasses authentication; everything else requires the shared secret
// when one is configured.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(shield.HeadToGet)
	r.Use(shield.SecurityHeaders(shield.DefaultHeaders()))
	r.Use(shield.MaxBody(s.cfg.MaxBody))
	r.Use(shield.TraceID)
	r.Use(shield.APIKey(s.cfg.APIKey, "/health"))

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Post("/convert", s.handleConvert)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	f, err := staticFS.Open("static/index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	defer f.Close()
	io.Copy(w, f)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	log := shield.GetLogger(r.Context())

	// A declared length over the cap is rejected here, before any
	// workspace exists. Chunked bodies without a length are caught by
	// MaxBytesReader on read.
	if r.ContentLength > s.cfg.MaxBody {
		http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	mr, err := r.MultipartReader()
	if err != nil {
		log.Error("multipart reader", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	res, err := s.svc.Convert(r.Context(), mr)
	if err != nil {
		status, msg := statusOf(err)
		http.Error(w, msg, status)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+escapeQuotes(res.Filename)+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(res.Data)
}

// statusOf translates pipeline errors into a status code and a generic
// client-facing message. Diagnostic detail stays in the server logs.
func statusOf(err error) (int, string) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, "Request body too large"
	case errors.Is(err, ingest.ErrNoFile):
		return http.StatusBadRequest, "No file uploaded"
	case errors.Is(err, ingest.ErrStream):
		return http.StatusBadRequest, "Stream interrupted"
	case engine.IsLaunch(err):
		return http.StatusInternalServerError, "Conversion execution failed"
	case engine.IsExit(err):
		return http.StatusInternalServerError, "Conversion failed"
	case errors.Is(err, convert.ErrNoArtifact),
		errors.Is(err, convert.ErrBadArtifact):
		return http.StatusInternalServerError, "PDF generation failed"
	case errors.Is(err, convert.ErrReadArtifact):
		return http.StatusInternalServerError, "Read PDF failed"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}

// escapeQuotes makes a filename safe inside a quoted Content-Disposition
// parameter: backslashes and double quotes are backslash-escaped so a
// crafted name cannot terminate the parameter early.
func escapeQuotes(name string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(name)
}
