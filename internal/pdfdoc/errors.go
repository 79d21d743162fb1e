package pdfdoc

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is classification.
var (
	ErrUnreadableDocument = errors.New("unreadable document")
	ErrEmptySelectionList = errors.New("no PDFs added")
	ErrSourceUnreadable   = errors.New("source document unreadable")
	ErrWriteFailure       = errors.New("output could not be written")
)

// UnreadableDocumentError is returned when a source cannot be opened,
// is not a PDF, is encrypted or otherwise unsupported.
type UnreadableDocumentError struct {
	Path string
	Err  error
}

func (e *UnreadableDocumentError) Error() string {
	return fmt.Sprintf("error reading %s: %v", e.Path, e.Err)
}

func (e *UnreadableDocumentError) Unwrap() []error { return []error{ErrUnreadableDocument, e.Err} }

// AssemblyKind classifies a failed merge.
type AssemblyKind int

const (
	EmptySelectionList AssemblyKind = iota + 1
	SourceUnreadable
	WriteFailure
)

func (k AssemblyKind) String() string {
	switch k {
	case EmptySelectionList:
		return "empty_selection_list"
	case SourceUnreadable:
		return "source_unreadable"
	case WriteFailure:
		return "write_failure"
	default:
		return "unknown"
	}
}

func (k AssemblyKind) sentinel() error {
	switch k {
	case EmptySelectionList:
		return ErrEmptySelectionList
	case SourceUnreadable:
		return ErrSourceUnreadable
	case WriteFailure:
		return ErrWriteFailure
	}
	return nil
}

// AssemblyError aborts a merge; no output is left behind when it is returned.
type AssemblyError struct {
	Kind AssemblyKind
	Path string // source or output path, empty for EmptySelectionList
	Err  error
}

func (e *AssemblyError) Error() string {
	switch e.Kind {
	case EmptySelectionList:
		return ErrEmptySelectionList.Error()
	case SourceUnreadable:
		return fmt.Sprintf("cannot read %s: %v", e.Path, e.Err)
	case WriteFailure:
		return fmt.Sprintf("cannot write %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("merge failed: %v", e.Err)
}

func (e *AssemblyError) Unwrap() []error {
	var out []error
	if s := e.Kind.sentinel(); s != nil {
		out = append(out, s)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// KindOf returns the AssemblyKind carried by err, or 0.
func KindOf(err error) AssemblyKind {
	var ae *AssemblyError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}
