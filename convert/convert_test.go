package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazyhaar/convd/audit"
	"github.com/hazyhaar/convd/dbopen"
	"github.com/hazyhaar/convd/engine"
	"github.com/hazyhaar/convd/ingest"
	"github.com/hazyhaar/convd/workspace"

	_ "modernc.org/sqlite"
)

// stubEngine implements engine.Converter with a test-controlled function.
type stubEngine struct {
	fn func(ctx context.Context, inputPath, outputDir, profileDir string) error
}

func (s *stubEngine) Convert(ctx context.Context, inputPath, outputDir, profileDir string) error {
	return s.fn(ctx, inputPath, outputDir, profileDir)
}

// writesPDF returns a stub that drops a valid PDF next to the input.
func writesPDF(name string) *stubEngine {
	return &stubEngine{fn: func(_ context.Context, _, outputDir, _ string) error {
		return os.WriteFile(filepath.Join(outputDir, name), buildTextPDF("converted"), 0o644)
	}}
}

func newService(t *testing.T, conv engine.Converter, opts ...Option) (*Service, string) {
	t.Helper()
	root := t.TempDir()
	m := workspace.NewManager(root)
	return New(m, conv, nil, opts...), root
}

func uploadBody(t *testing.T, field, filename, content string) *multipart.Reader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	pw, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(pw, content)
	w.Close()
	return multipart.NewReader(&buf, w.Boundary())
}

// surviving returns the number of entries left under the workspace root.
func surviving(t *testing.T, root string) int {
	t.Helper()
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0
		}
		t.Fatal(err)
	}
	return len(entries)
}

func TestConvert_RoundTrip(t *testing.T) {
	// WHAT: A well-formed upload with a working engine yields PDF bytes
	// and leaves no workspace behind.
	svc, root := newService(t, writesPDF("report.pdf"))

	res, err := svc.Convert(context.Background(), uploadBody(t, "file", "report.docx", "doc bytes"))
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if res.Filename != "report.pdf" {
		t.Fatalf("filename: got %q", res.Filename)
	}
	if !bytes.HasPrefix(res.Data, []byte("%PDF-")) {
		t.Fatalf("result does not start with PDF header: %q", res.Data[:8])
	}
	if n := surviving(t, root); n != 0 {
		t.Fatalf("%d workspace(s) survived a successful conversion", n)
	}
}

func TestConvert_NoFilePart(t *testing.T) {
	// WHAT: Missing "file" part: typed error and no surviving workspace.
	svc, root := newService(t, writesPDF("x.pdf"))

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, _ := w.CreateFormField("comment")
	io.WriteString(fw, "no file here")
	w.Close()

	_, err := svc.Convert(context.Background(), multipart.NewReader(&buf, w.Boundary()))
	if !errors.Is(err, ingest.ErrNoFile) {
		t.Fatalf("got %v, want ErrNoFile", err)
	}
	if n := surviving(t, root); n != 0 {
		t.Fatalf("%d workspace(s) survived", n)
	}
}

func TestConvert_EngineFailure(t *testing.T) {
	// WHAT: A failing engine propagates its typed error; cleanup still runs.
	svc, root := newService(t, &stubEngine{fn: func(_ context.Context, _, _, _ string) error {
		return &engine.ExitError{Err: fmt.Errorf("exit status 77"), Output: "format not supported"}
	}})

	_, err := svc.Convert(context.Background(), uploadBody(t, "file", "evil.xyz", "?"))
	if !engine.IsExit(err) {
		t.Fatalf("got %v, want ExitError", err)
	}
	if n := surviving(t, root); n != 0 {
		t.Fatalf("%d workspace(s) survived", n)
	}
}

func TestConvert_NoArtifact(t *testing.T) {
	// WHAT: Engine claims success but produces nothing: ErrNoArtifact.
	// WHY: Distinct server failure from a non-zero exit.
	svc, root := newService(t, &stubEngine{fn: func(_ context.Context, _, _, _ string) error {
		return nil
	}})

	_, err := svc.Convert(context.Background(), uploadBody(t, "file", "in.odt", "x"))
	if !errors.Is(err, ErrNoArtifact) {
		t.Fatalf("got %v, want ErrNoArtifact", err)
	}
	if n := surviving(t, root); n != 0 {
		t.Fatalf("%d workspace(s) survived", n)
	}
}

func TestConvert_GarbageArtifact(t *testing.T) {
	// WHAT: A .pdf that is not a PDF fails validation, not the client.
	svc, root := newService(t, &stubEngine{fn: func(_ context.Context, _, outputDir, _ string) error {
		return os.WriteFile(filepath.Join(outputDir, "out.pdf"), []byte("not a pdf"), 0o644)
	}})

	_, err := svc.Convert(context.Background(), uploadBody(t, "file", "in.docx", "x"))
	if !errors.Is(err, ErrBadArtifact) {
		t.Fatalf("got %v, want ErrBadArtifact", err)
	}
	if n := surviving(t, root); n != 0 {
		t.Fatalf("%d workspace(s) survived", n)
	}
}

func TestConvert_AuditTrail(t *testing.T) {
	// WHAT: Success and failure both leave exactly one audit row.
	db := dbopen.OpenMemory(t, dbopen.WithSchema(audit.Schema))
	rec := audit.NewRecorder(db)
	svc, _ := newService(t, writesPDF("out.pdf"), WithAudit(rec))

	if _, err := svc.Convert(context.Background(), uploadBody(t, "file", "a.docx", "x")); err != nil {
		t.Fatal(err)
	}

	var outcome string
	if err := db.QueryRow(`SELECT outcome FROM conversion_log`).Scan(&outcome); err != nil {
		t.Fatalf("audit row missing: %v", err)
	}
	if outcome != "ok" {
		t.Fatalf("outcome: got %q", outcome)
	}
}

func TestResolveArtifact(t *testing.T) {
	// WHAT: First immediate .pdf entry wins; directories and other
	// extensions are skipped.
	dir := t.TempDir()
	os.MkdirAll(filepath.Join(dir, "user"), 0o755)
	os.WriteFile(filepath.Join(dir, "input.docx"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(dir, "nested.pdf.txt"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(dir, "out.PDF"), []byte("x"), 0o644)

	path, name, err := resolveArtifact(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		t.Fatalf("resolved %q", name)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("artifact outside dir: %q", path)
	}
}

func TestResolveArtifact_Empty(t *testing.T) {
	_, _, err := resolveArtifact(t.TempDir())
	if !errors.Is(err, ErrNoArtifact) {
		t.Fatalf("got %v, want ErrNoArtifact", err)
	}
}
