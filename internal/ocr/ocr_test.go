package ocr

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func regions(n int) []Region {
	out := make([]Region, n)
	for i := range out {
		out[i] = Region{Text: "word", Confidence: 0.9}
	}
	return out
}

func TestSparse(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		want bool
	}{
		{"empty text", Result{Text: "   ", Regions: regions(20)}, true},
		{"few regions", Result{Text: "hello", Regions: regions(3)}, true},
		{"enough regions", Result{Text: "hello world", Regions: regions(5)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sparse(tt.res, 5))
		})
	}
}

func TestFallbackUsesPrimaryWhenGood(t *testing.T) {
	primary := &MockEngine{EngineName: "primary"}
	secondary := &MockEngine{EngineName: "secondary"}
	good := Result{Text: "scanned contract text", Regions: regions(10)}
	primary.On("Recognize", context.Background(), "page.png").Return(good, nil)

	f := NewFallback(primary, secondary, 5, discardLogger())
	res, err := f.Recognize(context.Background(), "page.png")

	require.NoError(t, err)
	assert.Equal(t, good, res)
	secondary.AssertNotCalled(t, "Recognize", context.Background(), "page.png")
}

func TestFallbackOnSparseResult(t *testing.T) {
	primary := &MockEngine{EngineName: "primary"}
	secondary := &MockEngine{EngineName: "secondary"}
	sparse := Result{Text: "x", Regions: regions(2)}
	better := Result{Text: "full page of recovered text", Regions: regions(30)}
	primary.On("Recognize", context.Background(), "page.png").Return(sparse, nil)
	secondary.On("Recognize", context.Background(), "page.png").Return(better, nil)

	f := NewFallback(primary, secondary, 5, discardLogger())
	res, err := f.Recognize(context.Background(), "page.png")

	require.NoError(t, err)
	assert.Equal(t, better, res)
}

func TestFallbackOnPrimaryError(t *testing.T) {
	primary := &MockEngine{EngineName: "primary"}
	secondary := &MockEngine{EngineName: "secondary"}
	better := Result{Text: "recovered", Regions: regions(8)}
	primary.On("Recognize", context.Background(), "page.png").Return(Result{}, errors.New("binary not found"))
	secondary.On("Recognize", context.Background(), "page.png").Return(better, nil)

	f := NewFallback(primary, secondary, 5, discardLogger())
	res, err := f.Recognize(context.Background(), "page.png")

	require.NoError(t, err)
	assert.Equal(t, better, res)
}

func TestFallbackKeepsSparsePrimaryWhenSecondaryFails(t *testing.T) {
	primary := &MockEngine{EngineName: "primary"}
	secondary := &MockEngine{EngineName: "secondary"}
	sparse := Result{Text: "partial", Regions: regions(1)}
	primary.On("Recognize", context.Background(), "page.png").Return(sparse, nil)
	secondary.On("Recognize", context.Background(), "page.png").Return(Result{}, errors.New("boom"))

	f := NewFallback(primary, secondary, 5, discardLogger())
	res, err := f.Recognize(context.Background(), "page.png")

	require.NoError(t, err)
	assert.Equal(t, sparse, res)
}

func TestFallbackWithoutSecondaryPassesThrough(t *testing.T) {
	primary := &MockEngine{EngineName: "primary"}
	wantErr := errors.New("no tesseract")
	primary.On("Recognize", context.Background(), "page.png").Return(Result{}, wantErr)

	f := NewFallback(primary, nil, 5, discardLogger())
	_, err := f.Recognize(context.Background(), "page.png")

	assert.ErrorIs(t, err, wantErr)
}

func TestParseTSV(t *testing.T) {
	tsv := "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
		"1\t1\t0\t0\t0\t0\t0\t0\t2550\t3300\t-1\t\n" +
		"5\t1\t1\t1\t1\t1\t100\t200\t80\t30\t96.5\tSettlement\n" +
		"5\t1\t1\t1\t1\t2\t190\t200\t90\t30\t91.0\tAgreement\n" +
		"5\t1\t1\t1\t2\t1\t100\t240\t60\t30\t88.2\tSection\n" +
		"5\t1\t1\t1\t2\t2\t170\t240\t20\t30\t-1\t \n"

	res := parseTSV(tsv)

	assert.Equal(t, "Settlement Agreement\nSection", res.Text)
	require.Len(t, res.Regions, 3)
	assert.Equal(t, Region{Text: "Settlement", Confidence: 0.965, X: 100, Y: 200, Width: 80, Height: 30}, res.Regions[0])
}

func TestParseTSVEmptyOutput(t *testing.T) {
	res := parseTSV("level\tpage_num\n")
	assert.Empty(t, res.Text)
	assert.Empty(t, res.Regions)
}
