package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// TesseractEngine shells out to a tesseract-compatible CLI and parses its TSV
// output into text plus word regions.
type TesseractEngine struct {
	// Command is the binary to invoke, e.g. "tesseract".
	Command string
	// Languages is the -l argument, e.g. "eng" or "eng+heb".
	Languages string
}

// NewTesseract returns an engine invoking the given command. An empty
// command defaults to "tesseract".
func NewTesseract(command, languages string) *TesseractEngine {
	if command == "" {
		command = "tesseract"
	}
	if languages == "" {
		languages = "eng"
	}
	return &TesseractEngine{Command: command, Languages: languages}
}

func (e *TesseractEngine) Name() string { return e.Command }

func (e *TesseractEngine) Recognize(ctx context.Context, path string) (Result, error) {
	// "stdout" as the output base writes TSV to stdout instead of a file.
	cmd := exec.CommandContext(ctx, e.Command, path, "stdout", "-l", e.Languages, "tsv")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return Result{}, fmt.Errorf("%s failed: %w: %s", e.Command, err, msg)
		}
		return Result{}, fmt.Errorf("%s failed: %w", e.Command, err)
	}
	return parseTSV(stdout.String()), nil
}

// parseTSV turns tesseract's TSV output into a Result. Word rows are level 5;
// rows with negative confidence are layout markers and are skipped. Text is
// reassembled with spaces inside a line and newlines between lines.
func parseTSV(out string) Result {
	var (
		res      Result
		text     strings.Builder
		lastLine = -1
	)
	for i, row := range strings.Split(out, "\n") {
		if i == 0 { // header
			continue
		}
		cols := strings.Split(row, "\t")
		if len(cols) < 12 {
			continue
		}
		level, _ := strconv.Atoi(cols[0])
		if level != 5 {
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		word := strings.TrimSpace(cols[11])
		if word == "" {
			continue
		}

		left, _ := strconv.Atoi(cols[6])
		top, _ := strconv.Atoi(cols[7])
		width, _ := strconv.Atoi(cols[8])
		height, _ := strconv.Atoi(cols[9])
		res.Regions = append(res.Regions, Region{
			Text:       word,
			Confidence: conf / 100,
			X:          left,
			Y:          top,
			Width:      width,
			Height:     height,
		})

		lineNum, _ := strconv.Atoi(cols[4])
		if text.Len() > 0 {
			if lineNum != lastLine {
				text.WriteByte('\n')
			} else {
				text.WriteByte(' ')
			}
		}
		text.WriteString(word)
		lastLine = lineNum
	}
	res.Text = text.String()
	return res
}
