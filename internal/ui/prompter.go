package ui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"github.com/local/pdfassembler/internal/selection"
	"github.com/local/pdfassembler/internal/session"
)

// dialogPrompter implements session.Prompter with modal fyne dialogs.
type dialogPrompter struct {
	win fyne.Window
}

// pageValidator accepts whole numbers in [min, max]. The form dialog keeps
// its confirm button disabled while the entry is invalid.
func pageValidator(min, max int) fyne.StringValidator {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return errors.New("enter a whole page number")
		}
		return selection.CheckPage(n, min, max)
	}
}

func (p *dialogPrompter) AskPage(req session.PageRequest, done func(int, bool)) {
	entry := widget.NewEntry()
	entry.SetText(strconv.Itoa(req.Default))
	entry.Validator = pageValidator(req.Min, req.Max)

	item := widget.NewFormItem("Page", entry)
	item.HintText = fmt.Sprintf("%d-%d", req.Min, req.Max)
	items := []*widget.FormItem{
		widget.NewFormItem("", widget.NewLabel(req.Message)),
		item,
	}

	d := dialog.NewForm(req.Title, "OK", "Cancel", items, func(ok bool) {
		if !ok {
			done(0, false)
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(entry.Text))
		if err != nil {
			done(0, false)
			return
		}
		done(n, true)
	}, p.win)
	d.Resize(fyne.NewSize(440, 200))
	d.Show()
	p.win.Canvas().Focus(entry)
}

// AskSavePath picks a folder, then a file name. The chosen file is never
// opened here, so an existing output survives until a merge replaces it.
func (p *dialogPrompter) AskSavePath(suggested string, done func(string, bool)) {
	fd := dialog.NewFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil {
			p.ShowError("Error", err)
			done("", false)
			return
		}
		if dir == nil {
			done("", false)
			return
		}
		p.askFileName(dir.Path(), filepath.Base(suggested), done)
	}, p.win)
	if filepath.IsAbs(suggested) {
		if loc, err := storage.ListerForURI(storage.NewFileURI(filepath.Dir(suggested))); err == nil {
			fd.SetLocation(loc)
		}
	}
	fd.Show()
}

func (p *dialogPrompter) askFileName(dir, name string, done func(string, bool)) {
	entry := widget.NewEntry()
	entry.SetText(name)
	entry.Validator = func(s string) error {
		_, err := outputPath(dir, s)
		return err
	}
	items := []*widget.FormItem{
		widget.NewFormItem("Folder", widget.NewLabel(dir)),
		widget.NewFormItem("File name", entry),
	}
	d := dialog.NewForm("Save merged PDF", "Save", "Cancel", items, func(ok bool) {
		if !ok {
			done("", false)
			return
		}
		path, err := outputPath(dir, entry.Text)
		if err != nil {
			p.ShowError("Error", err)
			done("", false)
			return
		}
		if _, err := os.Stat(path); err != nil {
			done(path, true)
			return
		}
		msg := fmt.Sprintf("%s already exists.\nDo you want to replace it?", filepath.Base(path))
		dialog.ShowConfirm("Confirm Save As", msg, func(replace bool) {
			done(path, replace)
		}, p.win)
	}, p.win)
	d.Resize(fyne.NewSize(480, 200))
	d.Show()
	p.win.Canvas().Focus(entry)
}

// outputPath joins dir and a typed file name, adding .pdf when the name has
// no extension.
func outputPath(dir, name string) (string, error) {
	switch {
	case name == "":
		return "", errors.New("enter a file name")
	case name == "." || name == ".." || strings.ContainsAny(name, `/\`):
		return "", fmt.Errorf("%q is not a file name", name)
	}
	if filepath.Ext(name) == "" {
		name += ".pdf"
	}
	return filepath.Join(dir, name), nil
}

func (p *dialogPrompter) ShowError(_ string, err error) {
	dialog.ShowError(err, p.win)
}

func (p *dialogPrompter) ShowInfo(title, message string) {
	dialog.ShowInformation(title, message, p.win)
}
