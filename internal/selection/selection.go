// Package selection holds the ordered list of page ranges chosen for assembly.
package selection

import (
	"errors"
	"fmt"
	"path/filepath"
)

// ErrOutOfBounds reports a page number or range outside the document.
var ErrOutOfBounds = errors.New("page out of bounds")

// Selection is one contiguous slice of a source document. Start and End are
// zero-based and inclusive.
type Selection struct {
	SourcePath string // local file read by the reader, renderer and assembler
	Origin     string // locator as supplied by the user
	Start      int
	End        int
}

// New validates 0 <= start <= end < total and returns the Selection.
// An empty origin defaults to path.
func New(path, origin string, start, end, total int) (Selection, error) {
	if path == "" {
		return Selection{}, errors.New("selection: empty source path")
	}
	if total <= 0 {
		return Selection{}, fmt.Errorf("selection: %s has no pages: %w", path, ErrOutOfBounds)
	}
	if start < 0 || end < start || end >= total {
		return Selection{}, fmt.Errorf("selection: range %d-%d not within 1-%d: %w", start+1, end+1, total, ErrOutOfBounds)
	}
	if origin == "" {
		origin = path
	}
	return Selection{SourcePath: path, Origin: origin, Start: start, End: end}, nil
}

// PageCount is the number of pages the selection contributes.
func (s Selection) PageCount() int { return s.End - s.Start + 1 }

// Label is the list row text, with 1-indexed page numbers.
func (s Selection) Label() string {
	return fmt.Sprintf("%s (Pages: %d-%d)", s.Origin, s.Start+1, s.End+1)
}

// Name is the short file name used in prompts and messages.
func (s Selection) Name() string { return DisplayName(s.Origin) }

// DisplayName shortens a locator to its last path element.
func DisplayName(ref string) string {
	if ref == "" {
		return ""
	}
	return filepath.Base(ref)
}

// CheckPage reports whether n lies in [min, max]. It backs both the prompt
// validator and the controller's re-check of prompt answers.
func CheckPage(n, min, max int) error {
	if min > max {
		return fmt.Errorf("empty page range %d-%d: %w", min, max, ErrOutOfBounds)
	}
	if n < min || n > max {
		return fmt.Errorf("page %d not within %d-%d: %w", n, min, max, ErrOutOfBounds)
	}
	return nil
}
