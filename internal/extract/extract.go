// Package extract turns stored documents into plain text. Dispatch is by MIME
// type; scanned PDFs and images go through OCR.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"lexvault/internal/ocr"
)

// Extraction is the text pulled out of one document.
type Extraction struct {
	Text string
	// OCRUsed reports that at least one page went through OCR.
	OCRUsed bool
	// Pages is the page count for paginated formats, zero otherwise.
	Pages int
}

// Extractor extracts text from files on disk.
type Extractor struct {
	engine ocr.Engine
	raster ocr.Rasterizer
	// scannedThreshold is the character count below which a PDF's embedded
	// text layer is considered missing and pages are OCRed instead.
	scannedThreshold int
	logger           *slog.Logger

	handlers map[string]handlerFunc
}

type handlerFunc func(ctx context.Context, path string) (Extraction, error)

// New builds an extractor. engine and raster may be nil, in which case
// scanned PDFs and images yield an empty extraction with OCRUsed unset.
func New(engine ocr.Engine, raster ocr.Rasterizer, scannedThreshold int, logger *slog.Logger) *Extractor {
	e := &Extractor{
		engine:           engine,
		raster:           raster,
		scannedThreshold: scannedThreshold,
		logger:           logger,
	}
	e.handlers = map[string]handlerFunc{
		"application/pdf": e.extractPDF,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": e.extractDocx,
		"application/json": e.extractPlainText,
		"text/csv":         e.extractPlainText,
	}
	return e
}

// Extract reads the file at path and returns its text. Unknown MIME types do
// not fail the pipeline; they produce a placeholder so the document is still
// findable by title.
func (e *Extractor) Extract(ctx context.Context, path, mimeType string) (Extraction, error) {
	mimeType = normalizeMIME(mimeType)

	if h, ok := e.handlers[mimeType]; ok {
		return h(ctx, path)
	}
	switch {
	case strings.HasPrefix(mimeType, "text/"):
		return e.extractPlainText(ctx, path)
	case strings.HasPrefix(mimeType, "image/"):
		return e.extractImage(ctx, path)
	}

	e.logger.Warn("no extractor for mime type, indexing placeholder", "mime_type", mimeType, "path", path)
	return Extraction{Text: fmt.Sprintf("[Unsupported document type: %s]", mimeType)}, nil
}

// normalizeMIME strips parameters such as "; charset=utf-8".
func normalizeMIME(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

func (e *Extractor) extractPlainText(_ context.Context, path string) (Extraction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Extraction{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Extraction{Text: string(data)}, nil
}

func (e *Extractor) extractImage(ctx context.Context, path string) (Extraction, error) {
	if e.engine == nil {
		return Extraction{}, nil
	}
	res, err := e.engine.Recognize(ctx, path)
	if err != nil {
		return Extraction{}, fmt.Errorf("ocr failed for %s: %w", path, err)
	}
	return Extraction{Text: res.Text, OCRUsed: true}, nil
}
