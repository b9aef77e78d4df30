// Package capture reduces a short burst of camera frames to one validated
// face embedding.
package capture

import (
	"context"
	"errors"
	"fmt"

	"github.com/algohackers/saarthi-vault/internal/errs"
	"github.com/algohackers/saarthi-vault/internal/facerec"
	"github.com/algohackers/saarthi-vault/internal/model"
)

// DefaultMinSamples is the burst length required for a valid capture.
const DefaultMinSamples = 10

// Source yields raw frames on demand. Implementations own the underlying
// device or buffer; Close must be safe to call exactly once per capture and
// releases the source.
type Source interface {
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// Aggregator drives repeated embedding extraction over a frame burst and
// rejects inconsistent bursts.
type Aggregator struct {
	extractor  facerec.Extractor
	matcher    facerec.Matcher
	minSamples int
}

// NewAggregator constructs an aggregator with the given extraction and match
// policy. minSamples <= 0 falls back to DefaultMinSamples.
func NewAggregator(extractor facerec.Extractor, matcher facerec.Matcher, minSamples int) *Aggregator {
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	return &Aggregator{extractor: extractor, matcher: matcher, minSamples: minSamples}
}

// CaptureAndValidate pulls minSamples frames from src, extracts an embedding
// from each and requires every one to match the first. On success the first
// embedding is returned as the representative template: once consistency is
// confirmed the first sample is canonical, and averaging would blur a
// legitimate feature vector. The source is released on every exit path,
// including cancellation, and raw frames are not retained.
func (a *Aggregator) CaptureAndValidate(ctx context.Context, src Source) (_ model.Embedding, err error) {
	defer func() {
		if cerr := src.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: release: %v", errs.ErrCaptureSource, cerr)
		}
	}()

	var first model.Embedding
	for i := 0; i < a.minSamples; i++ {
		if cerr := ctx.Err(); cerr != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrCaptureSource, cerr)
		}
		frame, ferr := src.Next(ctx)
		if ferr != nil {
			return nil, fmt.Errorf("%w: sample %d: %v", errs.ErrCaptureSource, i+1, ferr)
		}
		emb, xerr := a.extractor.Extract(ctx, frame)
		if errors.Is(xerr, errs.ErrNoSubjectDetected) {
			// Partial bursts are not salvaged.
			return nil, fmt.Errorf("sample %d: %w", i+1, errs.ErrNoSubjectDetected)
		}
		if xerr != nil {
			return nil, fmt.Errorf("%w: sample %d: %v", errs.ErrCaptureSource, i+1, xerr)
		}
		if i == 0 {
			first = emb
			continue
		}
		if !a.matcher.Match(first, emb) {
			return nil, fmt.Errorf("sample %d: %w", i+1, errs.ErrInconsistentCapture)
		}
	}
	return first, nil
}
