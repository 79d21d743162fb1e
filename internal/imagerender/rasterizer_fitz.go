package imagerender

import (
	"image"

	fitz "github.com/gen2brain/go-fitz"
)

// fitzRasterizer implements Rasterizer using github.com/gen2brain/go-fitz.
type fitzRasterizer struct{}

func (fitzRasterizer) Open(path string) (Doc, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return fitzDoc{doc}, nil
}

func init() {
	defaultRasterizer = fitzRasterizer{}
}

type fitzDoc struct{ *fitz.Document }

// go-fitz uses 0-based page indexes.
func (d fitzDoc) ImageDPI(page int, dpi float64) (image.Image, error) {
	return d.Document.ImageDPI(page, dpi)
}
