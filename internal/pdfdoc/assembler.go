package pdfdoc

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/local/pdfassembler/internal/selection"
)

// Assembler concatenates selections into one output document.
type Assembler struct {
	opts Options
}

func NewAssembler(opts Options) *Assembler {
	return &Assembler{opts: opts}
}

// Assemble writes pages Start..End of every selection, in list order, to
// outPath and returns the number of pages written. All pages are collected
// in memory first; outPath is replaced only after the whole document is
// ready, so any error leaves it untouched.
func (a *Assembler) Assemble(sels []selection.Selection, outPath string) (int, error) {
	if len(sels) == 0 {
		return 0, &AssemblyError{Kind: EmptySelectionList}
	}
	start := time.Now()

	parts := make([]io.ReadSeeker, 0, len(sels))
	pages := 0
	for _, s := range sels {
		data, err := a.extract(s)
		if err != nil {
			return 0, &AssemblyError{Kind: SourceUnreadable, Path: s.Origin, Err: err}
		}
		parts = append(parts, bytes.NewReader(data))
		pages += s.PageCount()
	}

	var out bytes.Buffer
	if len(parts) == 1 {
		if _, err := io.Copy(&out, parts[0]); err != nil {
			return 0, &AssemblyError{Kind: SourceUnreadable, Path: sels[0].Origin, Err: err}
		}
	} else if err := api.MergeRaw(parts, &out, false, a.opts.configuration()); err != nil {
		return 0, &AssemblyError{Kind: SourceUnreadable, Err: fmt.Errorf("merge failed: %w", err)}
	}

	if err := writeAtomic(outPath, out.Bytes()); err != nil {
		return 0, &AssemblyError{Kind: WriteFailure, Path: outPath, Err: err}
	}

	log.Info().
		Str("output", outPath).
		Int("selections", len(sels)).
		Int("pages", pages).
		Int("bytes", out.Len()).
		Dur("took", time.Since(start)).
		Msg("merged PDF written")
	return pages, nil
}

// extract returns a standalone PDF holding only the selected range of s.
func (a *Assembler) extract(s selection.Selection) ([]byte, error) {
	f, err := os.Open(s.SourcePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// The file may have changed since it was selected.
	n, err := api.PageCount(f, a.opts.configuration())
	if err != nil {
		return nil, fmt.Errorf("pdf page count failed: %w", err)
	}
	if s.End >= n {
		return nil, fmt.Errorf("pages %d-%d requested but document now has %d pages", s.Start+1, s.End+1, n)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	pageRange := fmt.Sprintf("%d-%d", s.Start+1, s.End+1)
	if err := api.Trim(f, &buf, []string{pageRange}, a.opts.configuration()); err != nil {
		return nil, fmt.Errorf("extract pages %s: %w", pageRange, err)
	}
	log.Debug().Str("file", s.SourcePath).Str("pages", pageRange).Int("bytes", buf.Len()).Msg("extracted range")
	return buf.Bytes(), nil
}
