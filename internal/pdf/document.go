// Package pdf gives the pipeline access to drawing pages: plain text and
// rasterized images through MuPDF, positioned text spans through a pure-Go
// content stream reader, and pre-flight validation.
package pdf

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"

	"github.com/joseph-ayodele/hvac-extractor/internal/common"
)

// DefaultDPI keeps small printed labels legible for the vision model.
const DefaultDPI = 120.0

// Document wraps a MuPDF document. MuPDF handles are not safe for concurrent
// use, so every call is serialized.
type Document struct {
	mu    sync.Mutex
	doc   *fitz.Document
	path  string
	pages int
}

// Open opens path with MuPDF. Failures are input errors.
func Open(path string) (*Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, common.InputError(fmt.Sprintf("open pdf %q", path), err)
	}
	return &Document{doc: doc, path: path, pages: doc.NumPage()}, nil
}

func (d *Document) Path() string { return d.path }

func (d *Document) NumPage() int { return d.pages }

// Text returns the plain text of page i (0-based).
func (d *Document) Text(i int) (string, error) {
	if err := d.checkPage(i); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	text, err := d.doc.Text(i)
	if err != nil {
		return "", fmt.Errorf("page %d text: %w", i, err)
	}
	return text, nil
}

// Lines splits the page text into lines, keeping blank lines so that line
// neighbourhoods match the printed layout.
func (d *Document) Lines(i int) ([]string, error) {
	text, err := d.Text(i)
	if err != nil {
		return nil, err
	}
	return SplitLines(text), nil
}

// RenderPNG rasterizes page i at dpi (DefaultDPI when dpi <= 0).
func (d *Document) RenderPNG(i int, dpi float64) ([]byte, error) {
	if err := d.checkPage(i); err != nil {
		return nil, err
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	img, err := d.doc.ImagePNG(i, dpi)
	if err != nil {
		return nil, fmt.Errorf("page %d render: %w", i, err)
	}
	return img, nil
}

func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return nil
	}
	err := d.doc.Close()
	d.doc = nil
	return err
}

func (d *Document) checkPage(i int) error {
	if i < 0 || i >= d.pages {
		return fmt.Errorf("page %d out of range [0,%d)", i, d.pages)
	}
	return nil
}

func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
