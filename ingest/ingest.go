// Package ingest consumes a streamed multipart upload and writes the
// document part into a request workspace under a sanitized name.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/hazyhaar/convd/workspace"
)

// FieldName is the multipart form field carrying the document.
const FieldName = "file"

// DefaultName is used when the client-supplied filename is unusable.
const DefaultName = "document"

// Sentinel errors for ingestion outcomes.
var (
	// ErrNoFile means no part named "file" was present in the body.
	ErrNoFile = errors.New("no file uploaded")

	// ErrStream means the upload stream broke mid-transfer. Attributable
	// to the client, not the server.
	ErrStream = errors.New("upload stream interrupted")
)

// UploadedFile describes the document written into the workspace.
type UploadedFile struct {
	Name string // sanitized basename
	Path string // absolute path inside the workspace
	Size int64
}

// SanitizeFilename reduces a client-supplied filename to a safe basename.
// Directory components are stripped; an empty or unusable result falls
// back to DefaultName. The result never contains a path separator and is
// never empty, so joining it to the workspace cannot escape it.
func SanitizeFilename(raw string) string {
	name := filepath.Base(raw)
	switch name {
	case "", ".", "..", string(filepath.Separator):
		return DefaultName
	}
	return name
}

// Receive scans the multipart stream for the first part named "file" and
// streams its bytes into ws. Later parts named "file" are ignored: the
// scan stops at the first match. The part is copied to disk in bounded
// chunks, never fully buffered.
//
// Returns ErrNoFile if the stream ends without a "file" part, and an error
// wrapping ErrStream if the part's bytes cannot be read or written
// mid-transfer. On any error the caller is expected to destroy the
// workspace, which discards any partially written file.
func Receive(mr *multipart.Reader, ws *workspace.Workspace) (*UploadedFile, error) {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, ErrNoFile
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStream, err)
		}
		if part.FormName() != FieldName {
			part.Close()
			continue
		}

		name := SanitizeFilename(part.FileName())
		path := ws.Join(name)

		f, err := os.Create(path)
		if err != nil {
			part.Close()
			return nil, fmt.Errorf("create %s: %w", name, err)
		}

		n, err := io.Copy(f, part)
		part.Close()
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: %w", ErrStream, err)
		}
		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("close %s: %w", name, err)
		}

		return &UploadedFile{Name: name, Path: path, Size: n}, nil
	}
}
