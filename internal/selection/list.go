package selection

import "fmt"

// List is the ordered selection sequence. Insertion order is output order.
// It is owned by a single goroutine and is not safe for concurrent use.
type List struct {
	items []Selection
}

func (l *List) Append(s Selection) { l.items = append(l.items, s) }

func (l *List) Clear() { l.items = nil }

func (l *List) Len() int { return len(l.items) }

// All returns a copy of the selections in order.
func (l *List) All() []Selection {
	out := make([]Selection, len(l.items))
	copy(out, l.items)
	return out
}

// At returns the i-th selection.
func (l *List) At(i int) (Selection, bool) {
	if i < 0 || i >= len(l.items) {
		return Selection{}, false
	}
	return l.items[i], true
}

// Remove drops the i-th selection, keeping the order of the rest.
func (l *List) Remove(i int) error {
	if i < 0 || i >= len(l.items) {
		return fmt.Errorf("selection: index %d out of range (len %d)", i, len(l.items))
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	return nil
}

// TotalPages sums the page counts of all selections.
func (l *List) TotalPages() int {
	n := 0
	for _, s := range l.items {
		n += s.PageCount()
	}
	return n
}
