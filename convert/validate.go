package convert

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var pdfMagic = []byte("%PDF-")

// validateArtifact rejects engine output that is not a readable PDF: a
// zero-exit engine run can still leave a truncated or garbage file behind.
// Checks the header signature, then runs a relaxed pdfcpu validation.
func validateArtifact(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadArtifact, err)
	}
	head := make([]byte, len(pdfMagic))
	_, err = io.ReadFull(f, head)
	f.Close()
	if err != nil || !bytes.Equal(head, pdfMagic) {
		return fmt.Errorf("%w: missing %%PDF- header", ErrBadArtifact)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, conf); err != nil {
		return fmt.Errorf("%w: %v", ErrBadArtifact, err)
	}
	return nil
}
