package imagerender

import (
	"errors"
	"fmt"
	"image"

	"github.com/rs/zerolog/log"
	xdraw "golang.org/x/image/draw"
)

// ErrRenderFailure matches every *RenderError.
var ErrRenderFailure = errors.New("render failure")

// RenderError reports a thumbnail that could not be produced.
type RenderError struct {
	Path string
	Page int // zero-based
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("error displaying preview of %s page %d: %v", e.Path, e.Page+1, e.Err)
}

func (e *RenderError) Unwrap() []error { return []error{ErrRenderFailure, e.Err} }

// Doc is an open document that can rasterize its pages.
type Doc interface {
	NumPage() int
	ImageDPI(page int, dpi float64) (image.Image, error)
	Close() error
}

// Rasterizer opens documents for rendering.
type Rasterizer interface {
	Open(path string) (Doc, error)
}

// defaultRasterizer is provided in rasterizer_fitz.go using go-fitz.
var defaultRasterizer Rasterizer

// Options configures a Renderer. Zero values fall back to 200x300 at 72 DPI.
type Options struct {
	Width      int
	Height     int
	DPI        int
	Rasterizer Rasterizer
}

// Renderer produces fixed-size thumbnails of PDF pages.
type Renderer struct {
	width, height int
	dpi           float64
	rast          Rasterizer
}

func New(opts Options) *Renderer {
	if opts.Width <= 0 {
		opts.Width = 200
	}
	if opts.Height <= 0 {
		opts.Height = 300
	}
	if opts.DPI <= 0 {
		opts.DPI = 72
	}
	if opts.Rasterizer == nil {
		opts.Rasterizer = defaultRasterizer
	}
	return &Renderer{width: opts.Width, height: opts.Height, dpi: float64(opts.DPI), rast: opts.Rasterizer}
}

// Size returns the thumbnail dimensions.
func (r *Renderer) Size() (int, int) { return r.width, r.height }

// Render rasterizes a zero-based page of pdfPath scaled to the target size.
func (r *Renderer) Render(pdfPath string, page int) (image.Image, error) {
	doc, err := r.open(pdfPath, page)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	return r.renderPage(doc, pdfPath, page)
}

// RenderPair renders the first and last page of a range with one open.
func (r *Renderer) RenderPair(pdfPath string, first, last int) (image.Image, image.Image, error) {
	doc, err := r.open(pdfPath, first)
	if err != nil {
		return nil, nil, err
	}
	defer doc.Close()

	a, err := r.renderPage(doc, pdfPath, first)
	if err != nil {
		return nil, nil, err
	}
	if last == first {
		return a, a, nil
	}
	b, err := r.renderPage(doc, pdfPath, last)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func (r *Renderer) open(pdfPath string, page int) (Doc, error) {
	if r.rast == nil {
		return nil, &RenderError{Path: pdfPath, Page: page, Err: errors.New("no rasterizer configured")}
	}
	doc, err := r.rast.Open(pdfPath)
	if err != nil {
		return nil, &RenderError{Path: pdfPath, Page: page, Err: fmt.Errorf("failed to open PDF: %w", err)}
	}
	return doc, nil
}

func (r *Renderer) renderPage(doc Doc, pdfPath string, page int) (image.Image, error) {
	if page < 0 || page >= doc.NumPage() {
		return nil, &RenderError{Path: pdfPath, Page: page, Err: fmt.Errorf("page out of range (document has %d pages)", doc.NumPage())}
	}
	src, err := doc.ImageDPI(page, r.dpi)
	if err != nil {
		return nil, &RenderError{Path: pdfPath, Page: page, Err: err}
	}
	if src == nil || src.Bounds().Empty() {
		return nil, &RenderError{Path: pdfPath, Page: page, Err: errors.New("empty page image")}
	}

	dst := Scale(src, r.width, r.height)
	log.Debug().
		Str("file", pdfPath).
		Int("page", page+1).
		Int("src_width", src.Bounds().Dx()).
		Int("src_height", src.Bounds().Dy()).
		Msg("rendered thumbnail")
	return dst, nil
}

// Scale resizes img to exactly w x h, ignoring aspect ratio.
func Scale(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}
