// Package pdfdoc reads page counts from source PDFs and assembles selected
// page ranges into a single output document. Parsing and writing are done
// by pdfcpu.
package pdfdoc

import (
	"errors"
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog/log"

	"github.com/local/pdfassembler/internal/filetype"
)

// Options tune how pdfcpu parses documents.
type Options struct {
	Relaxed bool
}

func (o Options) configuration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	if o.Relaxed {
		conf.ValidationMode = model.ValidationRelaxed
	}
	return conf
}

// Reader reports page counts.
type Reader struct {
	opts     Options
	detector *filetype.Detector
}

func NewReader(opts Options) *Reader {
	return &Reader{opts: opts, detector: filetype.New()}
}

// PageCount returns the number of pages of the PDF at path.
func (r *Reader) PageCount(path string) (int, error) {
	if err := r.detector.RequirePDF(path); err != nil {
		return 0, &UnreadableDocumentError{Path: path, Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, &UnreadableDocumentError{Path: path, Err: err}
	}
	defer f.Close()

	n, err := api.PageCount(f, r.opts.configuration())
	if err != nil {
		return 0, &UnreadableDocumentError{Path: path, Err: fmt.Errorf("pdf page count failed: %w", err)}
	}
	if n <= 0 {
		return 0, &UnreadableDocumentError{Path: path, Err: errors.New("document has no pages")}
	}
	log.Debug().Str("file", path).Int("pages", n).Msg("page count")
	return n, nil
}
