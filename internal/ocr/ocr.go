// Package ocr recognizes text in scanned pages. A primary engine handles the
// common case; when its output looks too thin the caller falls back to a
// secondary engine via Fallback.
package ocr

import (
	"context"
	"errors"
	"strings"
)

// ErrNoEngine reports that no OCR engine is configured.
var ErrNoEngine = errors.New("no ocr engine configured")

// Region is a recognized text region with its confidence and bounding box in
// page pixel coordinates.
type Region struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// Result is the recognized text of one image plus its per-region detail.
type Result struct {
	Text    string   `json:"text"`
	Regions []Region `json:"regions"`
}

// Engine recognizes text in a single image file.
type Engine interface {
	// Recognize runs OCR on the image at path.
	Recognize(ctx context.Context, path string) (Result, error)
	// Name identifies the engine in logs.
	Name() string
}

// Sparse reports whether a result looks like a failed recognition: no text at
// all, or fewer detected regions than minRegions. Sparse results trigger the
// fallback engine.
func Sparse(res Result, minRegions int) bool {
	if strings.TrimSpace(res.Text) == "" {
		return true
	}
	return len(res.Regions) < minRegions
}
