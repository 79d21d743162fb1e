package imagerender

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

type fakeDoc struct {
	pages   []image.Image
	failOn  map[int]bool
	closed  *int
	lastDPI float64
}

func (d *fakeDoc) NumPage() int { return len(d.pages) }

func (d *fakeDoc) ImageDPI(page int, dpi float64) (image.Image, error) {
	d.lastDPI = dpi
	if d.failOn[page] {
		return nil, errors.New("decode error")
	}
	return d.pages[page], nil
}

func (d *fakeDoc) Close() error {
	*d.closed++
	return nil
}

type fakeRasterizer struct {
	doc     *fakeDoc
	openErr error
	opens   int
}

func (f *fakeRasterizer) Open(string) (Doc, error) {
	f.opens++
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.doc, nil
}

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func newFake(pages ...image.Image) (*fakeRasterizer, *int) {
	closed := 0
	return &fakeRasterizer{doc: &fakeDoc{pages: pages, closed: &closed, failOn: map[int]bool{}}}, &closed
}

func TestRenderScalesToFixedSize(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	cases := []struct {
		name string
		src  image.Image
	}{
		{"portrait", solid(612, 792, red)},
		{"landscape", solid(842, 595, red)},
		{"tiny", solid(3, 2, red)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rast, closed := newFake(c.src)
			r := New(Options{Width: 200, Height: 300, DPI: 96, Rasterizer: rast})
			img, err := r.Render("doc.pdf", 0)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 300 {
				t.Fatalf("size = %dx%d, want 200x300", b.Dx(), b.Dy())
			}
			if got := color.RGBAModel.Convert(img.At(100, 150)).(color.RGBA); got.R != 255 || got.G != 0 {
				t.Errorf("center pixel = %+v, want red", got)
			}
			if rast.doc.lastDPI != 96 {
				t.Errorf("dpi = %v, want 96", rast.doc.lastDPI)
			}
			if *closed != 1 {
				t.Errorf("doc closed %d times, want 1", *closed)
			}
		})
	}
}

func TestRenderDefaults(t *testing.T) {
	rast, _ := newFake(solid(10, 10, color.White))
	r := New(Options{Rasterizer: rast})
	if w, h := r.Size(); w != 200 || h != 300 {
		t.Fatalf("default size = %dx%d", w, h)
	}
	if _, err := r.Render("doc.pdf", 0); err != nil {
		t.Fatal(err)
	}
	if rast.doc.lastDPI != 72 {
		t.Fatalf("default dpi = %v", rast.doc.lastDPI)
	}
}

func TestRenderFailures(t *testing.T) {
	rast, closed := newFake(solid(10, 10, color.White), solid(10, 10, color.Black))
	rast.doc.failOn[1] = true
	r := New(Options{Rasterizer: rast})

	if _, err := r.Render("doc.pdf", 1); !errors.Is(err, ErrRenderFailure) {
		t.Errorf("decode failure err = %v", err)
	}
	if _, err := r.Render("doc.pdf", 5); !errors.Is(err, ErrRenderFailure) {
		t.Errorf("out of range err = %v", err)
	}
	if *closed != 2 {
		t.Errorf("doc must be closed on error paths, closed=%d", *closed)
	}

	rast.openErr = errors.New("cannot open")
	_, err := r.Render("broken.pdf", 0)
	var re *RenderError
	if !errors.As(err, &re) || re.Path != "broken.pdf" {
		t.Fatalf("open failure err = %v", err)
	}
}

func TestRenderPair(t *testing.T) {
	rast, closed := newFake(solid(10, 10, color.White), solid(10, 10, color.Black), solid(10, 10, color.White))
	r := New(Options{Width: 20, Height: 30, Rasterizer: rast})

	first, last, err := r.RenderPair("doc.pdf", 0, 1)
	if err != nil {
		t.Fatalf("RenderPair: %v", err)
	}
	if rast.opens != 1 || *closed != 1 {
		t.Errorf("opens=%d closed=%d, want 1/1", rast.opens, *closed)
	}
	if c := color.GrayModel.Convert(first.At(5, 5)).(color.Gray); c.Y != 255 {
		t.Errorf("first page should be white, got %v", c)
	}
	if c := color.GrayModel.Convert(last.At(5, 5)).(color.Gray); c.Y != 0 {
		t.Errorf("last page should be black, got %v", c)
	}

	rast.doc.failOn[2] = true
	if _, _, err := r.RenderPair("doc.pdf", 0, 2); !errors.Is(err, ErrRenderFailure) {
		t.Errorf("pair failure err = %v", err)
	}
}
