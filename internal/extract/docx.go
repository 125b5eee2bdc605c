package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// docx files are zip archives; the body text lives in word/document.xml as
// w:p paragraphs of w:t runs.
func (e *Extractor) extractDocx(_ context.Context, path string) (Extraction, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return Extraction{}, fmt.Errorf("failed to open docx %s: %w", path, err)
	}
	defer archive.Close()

	for _, f := range archive.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return Extraction{}, fmt.Errorf("failed to open document body in %s: %w", path, err)
		}
		defer rc.Close()

		text, err := docxBodyText(rc)
		if err != nil {
			return Extraction{}, fmt.Errorf("failed to parse document body in %s: %w", path, err)
		}
		return Extraction{Text: text}, nil
	}
	return Extraction{}, fmt.Errorf("docx %s has no word/document.xml", path)
}

func docxBodyText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		out    strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				out.Write(t)
			}
		}
	}
	return strings.TrimSpace(out.String()), nil
}
