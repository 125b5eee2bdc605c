package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Rasterizer converts a PDF into per-page images for OCR.
type Rasterizer interface {
	// Pages renders the PDF at path into images inside a temp directory and
	// returns the image paths in page order. cleanup removes the directory.
	Pages(ctx context.Context, path string) (images []string, cleanup func(), err error)
}

// PopplerRasterizer shells out to a pdftoppm-compatible CLI.
type PopplerRasterizer struct {
	// Command is the binary to invoke, e.g. "pdftoppm".
	Command string
	// DPI controls render resolution.
	DPI int
}

// NewPopplerRasterizer returns a rasterizer invoking the given command. An
// empty command defaults to "pdftoppm", a zero DPI to 300.
func NewPopplerRasterizer(command string, dpi int) *PopplerRasterizer {
	if command == "" {
		command = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 300
	}
	return &PopplerRasterizer{Command: command, DPI: dpi}
}

func (r *PopplerRasterizer) Pages(ctx context.Context, path string) ([]string, func(), error) {
	dir, err := os.MkdirTemp("", "ocr-pages-")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create page directory: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	prefix := filepath.Join(dir, "page")
	cmd := exec.CommandContext(ctx, r.Command, "-r", strconv.Itoa(r.DPI), "-png", path, prefix)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		cleanup()
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, nil, fmt.Errorf("%s failed: %w: %s", r.Command, err, msg)
		}
		return nil, nil, fmt.Errorf("%s failed: %w", r.Command, err)
	}

	images, err := filepath.Glob(prefix + "*.png")
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if len(images) == 0 {
		cleanup()
		return nil, nil, fmt.Errorf("%s produced no pages for %s", r.Command, path)
	}
	// pdftoppm zero-pads page numbers, so lexical order is page order.
	sort.Strings(images)
	return images, cleanup, nil
}
