package engine

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"time"
)

// candidateBinaries are tried in order when no binary is configured.
// Covers Linux distro packages, macOS installs, and a bare PATH lookup.
var candidateBinaries = []string{
	"libreoffice",
	"soffice",
	"/usr/bin/libreoffice",
	"/usr/bin/soffice",
	"/opt/homebrew/bin/soffice",
	"/Applications/LibreOffice.app/Contents/MacOS/soffice",
}

// LibreOffice converts documents to PDF by spawning a headless
// LibreOffice process per request.
type LibreOffice struct {
	// Binary is the engine executable. Empty means discover one from
	// candidateBinaries at first use.
	Binary string

	// Timeout bounds one invocation. Zero means no bound: a hung engine
	// process blocks its request indefinitely.
	Timeout time.Duration

	Logger *slog.Logger
}

// NewLibreOffice returns a converter using the given binary (empty for
// automatic discovery) and timeout (zero disables the bound).
func NewLibreOffice(binary string, timeout time.Duration) *LibreOffice {
	return &LibreOffice{Binary: binary, Timeout: timeout, Logger: slog.Default()}
}

func (lo *LibreOffice) binary() string {
	if lo.Binary != "" {
		return lo.Binary
	}
	for _, c := range candidateBinaries {
		if p, err := exec.LookPath(c); err == nil {
			return p
		}
	}
	// Let exec surface the lookup failure as a LaunchError.
	return candidateBinaries[0]
}

// buildArgs assembles the headless conversion invocation. The isolated
// UserInstallation profile is what allows concurrent invocations: without
// it LibreOffice serializes on a single profile lock.
func buildArgs(inputPath, outputDir, profileDir string) []string {
	return []string{
		"--headless",
		"--nodefault",
		"--nofirststartwizard",
		"--nolockcheck",
		"--nologo",
		"--norestore",
		"--convert-to", "pdf",
		"--outdir", outputDir,
		"-env:UserInstallation=file://" + profileDir,
		inputPath,
	}
}

// Convert runs the engine and waits for it to exit. The produced artifact
// is discovered by the caller; LibreOffice chooses its own output basename.
func (lo *LibreOffice) Convert(ctx context.Context, inputPath, outputDir, profileDir string) error {
	if lo.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, lo.Timeout)
		defer cancel()
	}

	bin := lo.binary()
	args := buildArgs(inputPath, outputDir, profileDir)

	logger := lo.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("engine invoke", "binary", bin, "input", inputPath)

	cmd := exec.CommandContext(ctx, bin, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) || ctx.Err() != nil {
			return &ExitError{Err: err, Output: string(out)}
		}
		return &LaunchError{Err: err}
	}
	return nil
}
