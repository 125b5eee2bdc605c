package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

func (e *Extractor) extractPDF(ctx context.Context, path string) (Extraction, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Extraction{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	text, pages, err := pdfPlainText(content)
	if err != nil {
		return Extraction{}, fmt.Errorf("failed to parse pdf %s: %w", path, err)
	}

	// A near-empty text layer means the PDF is a scan; read the pages with
	// OCR instead.
	if len(strings.TrimSpace(text)) >= e.scannedThreshold {
		return Extraction{Text: text, Pages: pages}, nil
	}
	if e.engine == nil || e.raster == nil {
		e.logger.Warn("pdf looks scanned but no ocr configured", "path", path, "text_chars", len(strings.TrimSpace(text)))
		return Extraction{Text: text, Pages: pages}, nil
	}
	e.logger.Info("pdf text layer below threshold, running ocr",
		"path", path, "text_chars", len(strings.TrimSpace(text)), "threshold", e.scannedThreshold)
	return e.ocrPDF(ctx, path)
}

// pdfPlainText pulls the embedded text layer out of a PDF, skipping pages
// that fail to decode. Function variable so tests can stand in a text layer
// without crafting PDF fixtures.
var pdfPlainText = func(content []byte) (string, int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", 0, err
	}

	var textBuilder strings.Builder
	numPages := reader.NumPage()
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}
	return textBuilder.String(), numPages, nil
}

// ocrPDF rasterizes each page and recognizes it, joining pages as paragraphs.
func (e *Extractor) ocrPDF(ctx context.Context, path string) (Extraction, error) {
	images, cleanup, err := e.raster.Pages(ctx, path)
	if err != nil {
		return Extraction{}, fmt.Errorf("failed to rasterize %s: %w", path, err)
	}
	defer cleanup()

	var pages []string
	for _, img := range images {
		if ctx.Err() != nil {
			return Extraction{}, ctx.Err()
		}
		res, err := e.engine.Recognize(ctx, img)
		if err != nil {
			return Extraction{}, fmt.Errorf("ocr failed on page %s: %w", img, err)
		}
		if t := strings.TrimSpace(res.Text); t != "" {
			pages = append(pages, t)
		}
	}
	return Extraction{Text: strings.Join(pages, "\n\n"), OCRUsed: true, Pages: len(images)}, nil
}
