// Package session drives one editing session: adding page ranges, previewing
// their endpoints, merging and clearing. It owns the selection list and the
// preview pairs; all methods run on the UI event goroutine.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/local/pdfassembler/internal/metrics"
	"github.com/local/pdfassembler/internal/pdfdoc"
	"github.com/local/pdfassembler/internal/selection"
)

// State of the session.
type State int

const (
	Idle State = iota
	HasSelections
	Merged
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case HasSelections:
		return "has_selections"
	case Merged:
		return "merged"
	}
	return "unknown"
}

// ErrCancelled ends an operation the user backed out of. It is never shown.
var ErrCancelled = errors.New("cancelled by user")

type PageCounter interface {
	PageCount(path string) (int, error)
}

type Thumbnailer interface {
	RenderPair(path string, first, last int) (image.Image, image.Image, error)
}

type Assembler interface {
	Assemble(sels []selection.Selection, outPath string) (int, error)
}

type Resolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
	Release()
}

// PageRequest describes one integer prompt. Min, Max and Default are 1-indexed.
type PageRequest struct {
	Title   string
	Message string
	Min     int
	Max     int
	Default int
}

// Prompter is the UI surface the controller talks to. Prompts answer through
// callbacks; ok=false means the user cancelled. AskSavePath must not create
// or truncate the chosen file.
type Prompter interface {
	AskPage(req PageRequest, done func(page int, ok bool))
	AskSavePath(suggested string, done func(path string, ok bool))
	ShowError(title string, err error)
	ShowInfo(title, message string)
}

// PreviewPair holds the thumbnails of a selection's first and last page.
type PreviewPair struct {
	First image.Image
	Last  image.Image
}

type Dependencies struct {
	Reader        PageCounter
	Renderer      Thumbnailer
	Assembler     Assembler
	Sources       Resolver
	Prompt        Prompter
	SourceTimeout time.Duration
}

type Controller struct {
	deps     Dependencies
	log      zerolog.Logger
	list     selection.List
	previews []*PreviewPair // parallel to list; nil when rendering failed
	state    State
	output   string
	onChange func()
}

func New(deps Dependencies) *Controller {
	if deps.SourceTimeout <= 0 {
		deps.SourceTimeout = time.Minute
	}
	id := uuid.NewString()
	c := &Controller{
		deps: deps,
		log:  log.Logger.With().Str("component", "session").Str("session", id).Logger(),
	}
	c.log.Info().Msg("session started")
	return c
}

// OnChange registers a callback run after every change to the list or previews.
func (c *Controller) OnChange(f func()) { c.onChange = f }

func (c *Controller) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

func (c *Controller) State() State { return c.state }

func (c *Controller) Len() int { return c.list.Len() }

func (c *Controller) Selections() []selection.Selection { return c.list.All() }

// Labels returns the list rows in order.
func (c *Controller) Labels() []string {
	sels := c.list.All()
	out := make([]string, len(sels))
	for i, s := range sels {
		out[i] = s.Label()
	}
	return out
}

// Preview returns the pair for the i-th selection; ok is false when none is available.
func (c *Controller) Preview(i int) (PreviewPair, bool) {
	if i < 0 || i >= len(c.previews) || c.previews[i] == nil {
		return PreviewPair{}, false
	}
	return *c.previews[i], true
}

// AddFiles adds each ref in turn; the range prompt of one file completes
// before the next starts.
func (c *Controller) AddFiles(refs []string) {
	if len(refs) == 0 {
		return
	}
	c.AddFile(refs[0], func(error) { c.AddFiles(refs[1:]) })
}

// AddFile resolves ref, asks for a page range and appends the selection.
// done, if set, receives nil on success, ErrCancelled or the failure.
func (c *Controller) AddFile(ref string, done func(error)) {
	finish := func(err error) {
		if done != nil {
			done(err)
		}
	}
	l := c.log.With().Str("ref", ref).Logger()

	ctx, cancel := context.WithTimeout(context.Background(), c.deps.SourceTimeout)
	path, err := c.deps.Sources.Resolve(ctx, ref)
	cancel()
	if err != nil {
		err = &pdfdoc.UnreadableDocumentError{Path: ref, Err: err}
		c.fail(l, "unreadable", err)
		finish(err)
		return
	}

	total, err := c.deps.Reader.PageCount(path)
	if err != nil {
		if !errors.Is(err, pdfdoc.ErrUnreadableDocument) {
			err = &pdfdoc.UnreadableDocumentError{Path: ref, Err: err}
		}
		c.fail(l, "unreadable", err)
		finish(err)
		return
	}

	c.askRange(ref, total, func(start, end int, err error) {
		if err != nil {
			if errors.Is(err, ErrCancelled) {
				metrics.IncSelection("cancelled")
				l.Info().Msg("range prompt cancelled")
			} else {
				c.fail(l, "rejected", err)
			}
			finish(err)
			return
		}
		sel, err := selection.New(path, ref, start, end, total)
		if err != nil {
			c.fail(l, "rejected", err)
			finish(err)
			return
		}
		c.append(sel)
		l.Info().Int("start", start+1).Int("end", end+1).Int("total", total).Msg("selection added")
		metrics.IncSelection("added")
		finish(nil)
	})
}

// askRange runs the two-step prompt and reports zero-based pages.
func (c *Controller) askRange(ref string, total int, done func(start, end int, err error)) {
	name := selection.DisplayName(ref)
	startReq := PageRequest{
		Title:   "Page Range",
		Message: fmt.Sprintf("Enter start page for %s (1-%d):", name, total),
		Min:     1,
		Max:     total,
		Default: 1,
	}
	c.deps.Prompt.AskPage(startReq, func(start int, ok bool) {
		if !ok {
			done(0, 0, ErrCancelled)
			return
		}
		if err := selection.CheckPage(start, startReq.Min, startReq.Max); err != nil {
			done(0, 0, err)
			return
		}
		endReq := PageRequest{
			Title:   "Page Range",
			Message: fmt.Sprintf("Enter end page for %s (%d-%d):", name, start, total),
			Min:     start,
			Max:     total,
			Default: total,
		}
		c.deps.Prompt.AskPage(endReq, func(end int, ok bool) {
			if !ok {
				done(0, 0, ErrCancelled)
				return
			}
			if err := selection.CheckPage(end, endReq.Min, endReq.Max); err != nil {
				done(0, 0, err)
				return
			}
			done(start-1, end-1, nil)
		})
	})
}

// append adds the selection and renders its preview. A preview failure is
// reported but the selection stays; the preview slot is left empty.
func (c *Controller) append(sel selection.Selection) {
	c.list.Append(sel)
	c.previews = append(c.previews, nil)
	c.state = HasSelections
	idx := c.list.Len() - 1

	began := time.Now()
	first, last, err := c.deps.Renderer.RenderPair(sel.SourcePath, sel.Start, sel.End)
	if err != nil {
		metrics.ObserveRender("error", time.Since(began))
		c.log.Warn().Err(err).Str("ref", sel.Origin).Msg("preview failed")
		c.changed()
		c.deps.Prompt.ShowError("Error", err)
		return
	}
	metrics.ObserveRender("ok", time.Since(began))
	c.previews[idx] = &PreviewPair{First: first, Last: last}
	c.changed()
}

func (c *Controller) fail(l zerolog.Logger, result string, err error) {
	metrics.IncSelection(result)
	l.Warn().Err(err).Msg("add file failed")
	c.deps.Prompt.ShowError("Error", err)
}

// Merge asks for an output location and assembles every selection into it.
func (c *Controller) Merge() {
	if c.list.Len() == 0 {
		c.reportMerge("", 0, &pdfdoc.AssemblyError{Kind: pdfdoc.EmptySelectionList})
		return
	}
	c.deps.Prompt.AskSavePath(c.suggestedOutput(), func(path string, ok bool) {
		if !ok || path == "" {
			c.log.Info().Msg("merge cancelled")
			return
		}
		_ = c.MergeTo(path)
	})
}

// MergeTo assembles every selection into path and reports the outcome.
// Selections are kept either way.
func (c *Controller) MergeTo(path string) error {
	if filepath.Ext(path) == "" {
		path += ".pdf"
	}
	pages, err := c.deps.Assembler.Assemble(c.list.All(), path)
	c.reportMerge(path, pages, err)
	return err
}

func (c *Controller) reportMerge(path string, pages int, err error) {
	if err != nil {
		kind := pdfdoc.KindOf(err)
		metrics.IncMerge(kind.String())
		c.log.Error().Err(err).Str("kind", kind.String()).Str("output", path).Msg("merge failed")
		c.deps.Prompt.ShowError("Error", err)
		return
	}
	metrics.IncMerge("success")
	metrics.AddPagesMerged(pages)
	c.output = path
	c.state = Merged
	c.log.Info().Str("output", path).Int("pages", pages).Msg("merge complete")
	c.changed()
	c.deps.Prompt.ShowInfo("Success", fmt.Sprintf("PDFs merged successfully!\n%d pages written to %s", pages, path))
}

func (c *Controller) suggestedOutput() string {
	if c.output != "" {
		return c.output
	}
	return "merged.pdf"
}

// Remove drops the i-th selection and its preview.
func (c *Controller) Remove(i int) error {
	if err := c.list.Remove(i); err != nil {
		return err
	}
	c.previews = append(c.previews[:i], c.previews[i+1:]...)
	if c.list.Len() == 0 {
		c.state = Idle
	} else {
		c.state = HasSelections
	}
	c.log.Info().Int("index", i).Msg("selection removed")
	c.changed()
	return nil
}

// Clear empties the list and previews and drops downloaded sources.
func (c *Controller) Clear() {
	c.list.Clear()
	c.previews = nil
	c.state = Idle
	c.deps.Sources.Release()
	c.log.Info().Msg("session cleared")
	c.changed()
}

// Close ends the session when its window closes.
func (c *Controller) Close() {
	c.list.Clear()
	c.previews = nil
	c.deps.Sources.Release()
	c.log.Info().Msg("session closed")
}
