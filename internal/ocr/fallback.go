package ocr

import (
	"context"
	"log/slog"
	"strings"
)

// Fallback runs a primary engine and retries with a secondary one when the
// primary errors or returns a sparse result. With no secondary configured the
// primary's result is returned as-is.
type Fallback struct {
	primary   Engine
	secondary Engine
	// MinRegions is the region count below which a result is considered
	// sparse and the secondary engine is tried.
	MinRegions int
	logger     *slog.Logger
}

// NewFallback wires the two engines. secondary may be nil.
func NewFallback(primary, secondary Engine, minRegions int, logger *slog.Logger) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, MinRegions: minRegions, logger: logger}
}

func (f *Fallback) Name() string { return f.primary.Name() }

func (f *Fallback) Recognize(ctx context.Context, path string) (Result, error) {
	if f.primary == nil {
		return Result{}, ErrNoEngine
	}

	res, err := f.primary.Recognize(ctx, path)
	if err == nil && !Sparse(res, f.MinRegions) {
		return res, nil
	}
	if f.secondary == nil {
		return res, err
	}
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	f.logger.Info("primary ocr result insufficient, trying fallback engine",
		"primary", f.primary.Name(),
		"fallback", f.secondary.Name(),
		"regions", len(res.Regions),
		"primary_error", errString(err))

	second, serr := f.secondary.Recognize(ctx, path)
	if serr != nil {
		// Keep the primary's result if it at least produced something.
		if err == nil {
			return res, nil
		}
		return Result{}, serr
	}
	return second, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimSpace(err.Error())
}
