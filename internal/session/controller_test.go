package session

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"testing/quick"

	"github.com/local/pdfassembler/internal/pdfdoc"
	"github.com/local/pdfassembler/internal/pdftest"
	"github.com/local/pdfassembler/internal/source"
)

func TestMain(m *testing.M) {
	pdftest.DisableConfigDir()
	os.Exit(m.Run())
}

type answer struct {
	page int
	ok   bool
}

// scriptedPrompt answers prompts synchronously from a queue.
type scriptedPrompt struct {
	pages    []answer
	save     answer
	savePath string
	requests []PageRequest
	saves    int
	errs     []error
	infos    []string
}

func (p *scriptedPrompt) AskPage(req PageRequest, done func(int, bool)) {
	p.requests = append(p.requests, req)
	if len(p.pages) == 0 {
		done(0, false)
		return
	}
	a := p.pages[0]
	p.pages = p.pages[1:]
	done(a.page, a.ok)
}

func (p *scriptedPrompt) AskSavePath(_ string, done func(string, bool)) {
	p.saves++
	done(p.savePath, p.save.ok)
}

func (p *scriptedPrompt) ShowError(_ string, err error) { p.errs = append(p.errs, err) }

func (p *scriptedPrompt) ShowInfo(_, msg string) { p.infos = append(p.infos, msg) }

func (p *scriptedPrompt) answer(pages ...int) {
	for _, n := range pages {
		p.pages = append(p.pages, answer{page: n, ok: true})
	}
}

type fakeRenderer struct {
	err   error
	calls [][2]int
}

func (r *fakeRenderer) RenderPair(_ string, first, last int) (image.Image, image.Image, error) {
	r.calls = append(r.calls, [2]int{first, last})
	if r.err != nil {
		return nil, nil, r.err
	}
	return image.NewRGBA(image.Rect(0, 0, 2, 3)), image.NewRGBA(image.Rect(0, 0, 2, 3)), nil
}

type countingResolver struct {
	*source.Resolver
	released int
}

func (r *countingResolver) Release() {
	r.released++
	r.Resolver.Release()
}

type fixture struct {
	c        *Controller
	prompt   *scriptedPrompt
	renderer *fakeRenderer
	sources  *countingResolver
	dir      string
	changes  int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		prompt:   &scriptedPrompt{},
		renderer: &fakeRenderer{},
		sources:  &countingResolver{Resolver: source.New(source.Options{TempDir: dir})},
		dir:      dir,
	}
	opts := pdfdoc.Options{Relaxed: true}
	f.c = New(Dependencies{
		Reader:    pdfdoc.NewReader(opts),
		Renderer:  f.renderer,
		Assembler: pdfdoc.NewAssembler(opts),
		Sources:   f.sources,
		Prompt:    f.prompt,
	})
	f.c.OnChange(func() { f.changes++ })
	return f
}

func (f *fixture) add(t *testing.T, ref string) error {
	t.Helper()
	var got error
	called := false
	f.c.AddFile(ref, func(err error) { got, called = err, true })
	if !called {
		t.Fatalf("AddFile(%s) never completed", ref)
	}
	return got
}

func TestAddFile(t *testing.T) {
	f := newFixture(t)
	a := pdftest.Write(t, f.dir, "A.pdf", 300, 301, 302)

	f.prompt.answer(2, 3)
	if err := f.add(t, a); err != nil {
		t.Fatalf("AddFile: %v", err)
	}

	wantReqs := []PageRequest{
		{Title: "Page Range", Message: "Enter start page for A.pdf (1-3):", Min: 1, Max: 3, Default: 1},
		{Title: "Page Range", Message: "Enter end page for A.pdf (2-3):", Min: 2, Max: 3, Default: 3},
	}
	if !reflect.DeepEqual(f.prompt.requests, wantReqs) {
		t.Errorf("prompts = %+v\nwant %+v", f.prompt.requests, wantReqs)
	}

	sels := f.c.Selections()
	if len(sels) != 1 || sels[0].Start != 1 || sels[0].End != 2 || sels[0].SourcePath != a {
		t.Fatalf("selections = %+v", sels)
	}
	if f.c.State() != HasSelections {
		t.Errorf("state = %v", f.c.State())
	}
	if got := f.c.Labels(); got[0] != a+" (Pages: 2-3)" {
		t.Errorf("label = %q", got[0])
	}
	if _, ok := f.c.Preview(0); !ok {
		t.Error("preview missing")
	}
	if !reflect.DeepEqual(f.renderer.calls, [][2]int{{1, 2}}) {
		t.Errorf("render calls = %v", f.renderer.calls)
	}
	if f.changes == 0 {
		t.Error("OnChange not called")
	}
	if len(f.prompt.errs) != 0 {
		t.Errorf("unexpected errors: %v", f.prompt.errs)
	}
}

func TestAddFileNameWithHash(t *testing.T) {
	f := newFixture(t)
	a := pdftest.Write(t, f.dir, "Invoice #12.pdf", 300, 301)

	f.prompt.answer(1, 2)
	if err := f.add(t, a); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	sels := f.c.Selections()
	if len(sels) != 1 || sels[0].SourcePath != a || sels[0].End != 1 {
		t.Fatalf("selections = %+v", sels)
	}
}

func TestAddFileCancelled(t *testing.T) {
	cases := []struct {
		name    string
		answers []answer
		asked   int
	}{
		{"start prompt", []answer{{0, false}}, 1},
		{"end prompt", []answer{{1, true}, {0, false}}, 2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := newFixture(t)
			a := pdftest.Write(t, f.dir, "A.pdf", 300, 301, 302)
			f.prompt.pages = c.answers

			if err := f.add(t, a); !errors.Is(err, ErrCancelled) {
				t.Fatalf("err = %v, want ErrCancelled", err)
			}
			if len(f.prompt.requests) != c.asked {
				t.Errorf("asked %d prompts, want %d", len(f.prompt.requests), c.asked)
			}
			if f.c.Len() != 0 || f.c.State() != Idle {
				t.Errorf("len=%d state=%v after cancel", f.c.Len(), f.c.State())
			}
			if len(f.prompt.errs) != 0 || len(f.renderer.calls) != 0 {
				t.Error("cancel must be silent and render nothing")
			}
		})
	}
}

func TestAddFileUnreadableKeepsExisting(t *testing.T) {
	f := newFixture(t)
	a := pdftest.Write(t, f.dir, "A.pdf", 300, 301)
	f.prompt.answer(1, 2)
	if err := f.add(t, a); err != nil {
		t.Fatal(err)
	}

	bad := filepath.Join(f.dir, "bad.pdf")
	if err := os.WriteFile(bad, []byte("plain text"), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, ref := range []string{bad, filepath.Join(f.dir, "gone.pdf")} {
		err := f.add(t, ref)
		if !errors.Is(err, pdfdoc.ErrUnreadableDocument) {
			t.Fatalf("AddFile(%s) err = %v", ref, err)
		}
		var ue *pdfdoc.UnreadableDocumentError
		if !errors.As(err, &ue) || ue.Path != ref {
			t.Errorf("error should name %s: %v", ref, err)
		}
	}
	if len(f.prompt.errs) != 2 {
		t.Errorf("shown %d errors, want 2", len(f.prompt.errs))
	}
	if len(f.prompt.requests) != 2 {
		t.Error("no prompt expected for unreadable files")
	}
	if f.c.Len() != 1 || f.c.State() != HasSelections {
		t.Errorf("existing selection lost: len=%d state=%v", f.c.Len(), f.c.State())
	}
}

// Whatever the prompt returns, only in-bounds answers become selections and
// end never precedes start.
func TestAddFileEnforcesPromptBounds(t *testing.T) {
	f := newFixture(t)
	a := pdftest.Write(t, f.dir, "A.pdf", pdftest.Widths(300, 5)...)

	prop := func(start, end int8) bool {
		f.c.Clear()
		f.prompt.errs = nil
		f.prompt.answer(int(start), int(end))
		err := f.add(t, a)
		f.prompt.pages = nil

		valid := start >= 1 && start <= 5 && end >= start && end <= 5
		if valid {
			sels := f.c.Selections()
			return err == nil && len(sels) == 1 && sels[0].Start == int(start)-1 && sels[0].End == int(end)-1
		}
		return err != nil && f.c.Len() == 0 && len(f.prompt.errs) == 1
	}
	if err := quick.Check(prop, &quick.Config{MaxCount: 300}); err != nil {
		t.Fatal(err)
	}
}

func TestAddFileRenderFailureKeepsSelection(t *testing.T) {
	f := newFixture(t)
	f.renderer.err = errors.New("decode error")
	a := pdftest.Write(t, f.dir, "A.pdf", 300, 301)

	f.prompt.answer(1, 2)
	if err := f.add(t, a); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if f.c.Len() != 1 {
		t.Fatal("selection should survive a preview failure")
	}
	if _, ok := f.c.Preview(0); ok {
		t.Error("no preview expected")
	}
	if len(f.prompt.errs) != 1 {
		t.Errorf("errors shown = %d, want 1", len(f.prompt.errs))
	}
}

func TestAddFilesInOrder(t *testing.T) {
	f := newFixture(t)
	a := pdftest.Write(t, f.dir, "A.pdf", 300, 301, 302)
	b := pdftest.Write(t, f.dir, "B.pdf", 400)
	c := pdftest.Write(t, f.dir, "C.pdf", 500, 501)

	f.prompt.pages = []answer{{1, true}, {3, true}, {0, false}, {2, true}, {2, true}}
	f.c.AddFiles([]string{a, b, c})

	sels := f.c.Selections()
	if len(sels) != 2 || sels[0].SourcePath != a || sels[1].SourcePath != c {
		t.Fatalf("selections = %+v", sels)
	}
	if sels[1].Start != 1 || sels[1].End != 1 {
		t.Errorf("C range = %d-%d", sels[1].Start, sels[1].End)
	}
}

func TestMergeConcreteScenario(t *testing.T) {
	f := newFixture(t)
	a := pdftest.Write(t, f.dir, "A.pdf", 300, 301, 302)
	b := pdftest.Write(t, f.dir, "B.pdf", 400, 401, 402)
	f.prompt.answer(2, 3, 1, 1)
	f.c.AddFiles([]string{a, b})

	out := filepath.Join(f.dir, "out")
	f.prompt.save = answer{ok: true}
	f.prompt.savePath = out
	f.c.Merge()

	if len(f.prompt.errs) != 0 {
		t.Fatalf("errors: %v", f.prompt.errs)
	}
	if got, want := pdftest.PageWidths(t, out+".pdf"), []int{301, 302, 400}; !reflect.DeepEqual(got, want) {
		t.Fatalf("merged pages = %v, want %v", got, want)
	}
	if len(f.prompt.infos) != 1 {
		t.Error("success not reported")
	}
	if f.c.State() != Merged || f.c.Len() != 2 {
		t.Errorf("state=%v len=%d; selections must be kept", f.c.State(), f.c.Len())
	}
}

func TestClearThenMerge(t *testing.T) {
	f := newFixture(t)
	a := pdftest.Write(t, f.dir, "A.pdf", 300)
	f.prompt.answer(1, 1)
	if err := f.add(t, a); err != nil {
		t.Fatal(err)
	}

	f.c.Clear()
	if f.c.State() != Idle || f.c.Len() != 0 {
		t.Fatalf("state=%v len=%d after clear", f.c.State(), f.c.Len())
	}
	if _, ok := f.c.Preview(0); ok {
		t.Error("previews not cleared")
	}
	if f.sources.released != 1 {
		t.Errorf("sources released %d times", f.sources.released)
	}

	f.c.Merge()
	if f.prompt.saves != 0 {
		t.Error("save path must not be asked for an empty list")
	}
	if len(f.prompt.errs) != 1 || !errors.Is(f.prompt.errs[0], pdfdoc.ErrEmptySelectionList) {
		t.Fatalf("errors = %v, want EmptySelectionList", f.prompt.errs)
	}
}

func TestMergeFailureKeepsState(t *testing.T) {
	f := newFixture(t)
	a := pdftest.Write(t, f.dir, "A.pdf", 300)
	b := pdftest.Write(t, f.dir, "B.pdf", 400)
	f.prompt.answer(1, 1, 1, 1)
	f.c.AddFiles([]string{a, b})
	if err := os.Remove(b); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(f.dir, "out.pdf")
	err := f.c.MergeTo(out)
	if pdfdoc.KindOf(err) != pdfdoc.SourceUnreadable {
		t.Fatalf("err = %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("partial output written")
	}
	if f.c.State() != HasSelections || f.c.Len() != 2 {
		t.Errorf("state=%v len=%d", f.c.State(), f.c.Len())
	}
	if len(f.prompt.errs) != 1 {
		t.Errorf("errors shown = %d", len(f.prompt.errs))
	}
}

func TestMergeFailureKeepsExistingOutput(t *testing.T) {
	f := newFixture(t)
	a := pdftest.Write(t, f.dir, "A.pdf", 300)
	f.prompt.answer(1, 1)
	if err := f.add(t, a); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(f.dir, "report.pdf")
	if err := os.WriteFile(out, []byte("previous output"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(a); err != nil {
		t.Fatal(err)
	}

	f.prompt.save = answer{ok: true}
	f.prompt.savePath = out
	f.c.Merge()

	if len(f.prompt.errs) != 1 || !errors.Is(f.prompt.errs[0], pdfdoc.ErrSourceUnreadable) {
		t.Fatalf("errors = %v", f.prompt.errs)
	}
	if data, _ := os.ReadFile(out); string(data) != "previous output" {
		t.Errorf("existing output changed: %q", data)
	}
}

func TestMergeSaveCancelled(t *testing.T) {
	f := newFixture(t)
	a := pdftest.Write(t, f.dir, "A.pdf", 300)
	f.prompt.answer(1, 1)
	if err := f.add(t, a); err != nil {
		t.Fatal(err)
	}
	f.prompt.save = answer{ok: false}
	f.c.Merge()
	if f.prompt.saves != 1 || len(f.prompt.errs) != 0 || len(f.prompt.infos) != 0 {
		t.Errorf("saves=%d errs=%v infos=%v", f.prompt.saves, f.prompt.errs, f.prompt.infos)
	}
	if f.c.State() != HasSelections {
		t.Errorf("state = %v", f.c.State())
	}
}

func TestRemoveAndClose(t *testing.T) {
	f := newFixture(t)
	a := pdftest.Write(t, f.dir, "A.pdf", 300, 301)
	b := pdftest.Write(t, f.dir, "B.pdf", 400)
	f.prompt.answer(1, 2, 1, 1)
	f.c.AddFiles([]string{a, b})

	if err := f.c.Remove(0); err != nil {
		t.Fatal(err)
	}
	if sels := f.c.Selections(); len(sels) != 1 || sels[0].SourcePath != b {
		t.Fatalf("after remove: %+v", sels)
	}
	if _, ok := f.c.Preview(0); !ok {
		t.Error("preview of remaining selection lost")
	}
	if err := f.c.Remove(3); err == nil {
		t.Error("expected out of range")
	}
	if err := f.c.Remove(0); err != nil || f.c.State() != Idle {
		t.Errorf("err=%v state=%v", err, f.c.State())
	}

	f.c.Close()
	if f.sources.released != 1 {
		t.Errorf("Close released %d times", f.sources.released)
	}
}

type failingResolver struct{}

func (failingResolver) Resolve(context.Context, string) (string, error) {
	return "", errors.New("no route to host")
}

func (failingResolver) Release() {}

func TestAddFileResolveFailure(t *testing.T) {
	f := newFixture(t)
	f.c.deps.Sources = failingResolver{}
	err := f.add(t, "https://example.invalid/a.pdf")
	if !errors.Is(err, pdfdoc.ErrUnreadableDocument) {
		t.Fatalf("err = %v", err)
	}
	if len(f.prompt.requests) != 0 || f.c.Len() != 0 {
		t.Error("nothing should be prompted or added")
	}
}
