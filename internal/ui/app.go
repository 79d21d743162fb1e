// Package ui is the fyne desktop front end: a selection list, a two-page
// preview pane and the add/merge/clear actions.
package ui

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/local/pdfassembler/internal/config"
	"github.com/local/pdfassembler/internal/logger"
	"github.com/local/pdfassembler/internal/session"
)

const appID = "local.pdfassembler"

var previewBackground = color.NRGBA{R: 128, G: 128, B: 128, A: 255}

// Run opens the main window and blocks until it is closed. deps.Prompt is
// replaced by the window's dialogs.
func Run(cfg config.Config, deps session.Dependencies) error {
	l := logger.Component("ui")
	l.Info().Msg("starting UI")

	a := app.NewWithID(appID)
	w := a.NewWindow("PDF Merger with Page Selection and Preview")
	w.Resize(fyne.NewSize(float32(cfg.Window.Width), float32(cfg.Window.Height)))

	deps.Prompt = &dialogPrompter{win: w}
	ctrl := session.New(deps)
	v := newView(ctrl, w, cfg.Preview.Width, cfg.Preview.Height)
	w.SetContent(v.layout())

	w.SetOnDropped(func(_ fyne.Position, uris []fyne.URI) {
		refs := make([]string, 0, len(uris))
		for _, u := range uris {
			refs = append(refs, uriRef(u))
		}
		l.Info().Int("files", len(refs)).Msg("files dropped")
		ctrl.AddFiles(refs)
	})
	w.SetOnClosed(ctrl.Close)

	w.ShowAndRun()
	l.Info().Msg("UI closed")
	return nil
}

// view binds one controller to its widgets.
type view struct {
	ctrl     *session.Controller
	win      fyne.Window
	list     *widget.List
	first    *canvas.Image
	last     *canvas.Image
	caption  *widget.Label
	status   *widget.Label
	selected int // -1: follow the most recently added selection
}

func newView(ctrl *session.Controller, w fyne.Window, thumbW, thumbH int) *view {
	v := &view{ctrl: ctrl, win: w, selected: -1}

	v.list = widget.NewList(
		func() int { return ctrl.Len() },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, o fyne.CanvasObject) {
			labels := ctrl.Labels()
			if id < len(labels) {
				o.(*widget.Label).SetText(labels[id])
			}
		},
	)
	v.list.OnSelected = func(id widget.ListItemID) {
		v.selected = id
		v.showPreview()
	}

	size := fyne.NewSize(float32(thumbW), float32(thumbH))
	v.first = &canvas.Image{FillMode: canvas.ImageFillStretch}
	v.first.SetMinSize(size)
	v.last = &canvas.Image{FillMode: canvas.ImageFillStretch}
	v.last.SetMinSize(size)
	v.caption = widget.NewLabel("")
	v.status = widget.NewLabel("Add PDFs to begin.")

	ctrl.OnChange(v.refresh)
	return v
}

func (v *view) layout() fyne.CanvasObject {
	thumb := func(img *canvas.Image) fyne.CanvasObject {
		bg := canvas.NewRectangle(previewBackground)
		bg.SetMinSize(img.MinSize())
		return container.NewStack(bg, img)
	}
	preview := container.NewVBox(
		container.NewGridWithColumns(2, widget.NewLabel("First page"), widget.NewLabel("Last page")),
		container.NewGridWithColumns(2, thumb(v.first), thumb(v.last)),
		v.caption,
	)

	buttons := container.NewHBox(
		widget.NewButtonWithIcon("Add PDFs", theme.ContentAddIcon(), v.addFile),
		widget.NewButtonWithIcon("Add URL", theme.DownloadIcon(), v.addURL),
		widget.NewButtonWithIcon("Remove", theme.ContentRemoveIcon(), v.removeSelected),
		widget.NewButtonWithIcon("Merge PDFs", theme.DocumentSaveIcon(), v.ctrl.Merge),
		widget.NewButtonWithIcon("Clear List", theme.DeleteIcon(), v.ctrl.Clear),
	)
	bottom := container.NewVBox(widget.NewSeparator(), buttons, v.status)
	return container.NewBorder(nil, bottom, nil, container.NewPadded(preview), v.list)
}

func (v *view) addFile() {
	fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, v.win)
			return
		}
		if rc == nil {
			return
		}
		ref := uriRef(rc.URI())
		_ = rc.Close()
		v.ctrl.AddFiles([]string{ref})
	}, v.win)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".pdf"}))
	fd.Show()
}

func (v *view) addURL() {
	entry := widget.NewEntry()
	entry.SetPlaceHolder("s3://bucket/key.pdf or https://host/file.pdf")
	entry.Validator = func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("enter a location")
		}
		return nil
	}
	d := dialog.NewForm("Add from URL", "Add", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("Location", entry)},
		func(ok bool) {
			if ok {
				v.ctrl.AddFiles(strings.Fields(entry.Text))
			}
		}, v.win)
	d.Resize(fyne.NewSize(520, 160))
	d.Show()
}

func (v *view) removeSelected() {
	if v.selected < 0 {
		return
	}
	if err := v.ctrl.Remove(v.selected); err != nil {
		dialog.ShowError(err, v.win)
	}
}

// refresh follows every controller change; the preview jumps back to the
// latest selection.
func (v *view) refresh() {
	v.list.UnselectAll()
	v.selected = -1
	v.list.Refresh()
	v.status.SetText(statusText(v.ctrl))
	v.showPreview()
}

func (v *view) showPreview() {
	idx := v.selected
	if idx < 0 {
		idx = v.ctrl.Len() - 1
	}
	pair, ok := v.ctrl.Preview(idx)
	switch {
	case idx < 0:
		v.caption.SetText("")
	case !ok:
		v.caption.SetText("Preview unavailable")
	default:
		v.caption.SetText(v.ctrl.Labels()[idx])
	}
	setImage(v.first, pair.First)
	setImage(v.last, pair.Last)
}

func setImage(c *canvas.Image, img image.Image) {
	c.Image = img
	c.Refresh()
}

func statusText(ctrl *session.Controller) string {
	if ctrl.Len() == 0 {
		return "Add PDFs to begin."
	}
	pages := 0
	for _, s := range ctrl.Selections() {
		pages += s.PageCount()
	}
	msg := fmt.Sprintf("%d selection(s), %d page(s)", ctrl.Len(), pages)
	if ctrl.State() == session.Merged {
		msg += " - merged"
	}
	return msg
}

// uriRef prefers a plain path for local files.
func uriRef(u fyne.URI) string {
	if u.Scheme() == "file" {
		return u.Path()
	}
	return u.String()
}
