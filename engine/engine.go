// Package engine invokes the external document rendering engine. The
// engine is a black box driven by command-line convention; this package
// only orchestrates the subprocess and classifies its failures.
package engine

import (
	"context"
	"errors"
	"fmt"
)

// Converter renders a document to PDF. inputPath is the file to convert,
// outputDir is where the artifact must be written, and profileDir is an
// isolated per-invocation settings directory that keeps concurrent runs
// from contending on a shared profile lock.
//
// Implementations return a LaunchError when the process cannot be started
// at all, and an ExitError when it ran but failed. Test doubles implement
// this interface to simulate either without a real engine.
type Converter interface {
	Convert(ctx context.Context, inputPath, outputDir, profileDir string) error
}

// LaunchError means the engine process could not be started (binary
// missing, spawn failure).
type LaunchError struct {
	Err error
}

func (e *LaunchError) Error() string { return fmt.Sprintf("engine launch: %v", e.Err) }
func (e *LaunchError) Unwrap() error { return e.Err }

// ExitError means the engine ran and failed: non-zero exit, or killed by
// the invocation timeout. Output carries the combined stdout/stderr for
// server-side logs; it must never reach a client.
type ExitError struct {
	Err    error
	Output string
}

func (e *ExitError) Error() string { return fmt.Sprintf("engine exit: %v", e.Err) }
func (e *ExitError) Unwrap() error { return e.Err }

// IsLaunch reports whether err is a LaunchError.
func IsLaunch(err error) bool {
	var le *LaunchError
	return errors.As(err, &le)
}

// IsExit reports whether err is an ExitError.
func IsExit(err error) bool {
	var ee *ExitError
	return errors.As(err, &ee)
}
