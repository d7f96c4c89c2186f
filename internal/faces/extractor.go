package faces

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/chrofis/magicalstory/internal/ai"
	"github.com/chrofis/magicalstory/internal/config"
	"github.com/chrofis/magicalstory/internal/story"
)

// fallbackConfidenceScale discounts fallback character labels relative to
// evaluation-metadata matches.
const fallbackConfidenceScale = 0.75

// DetectParams are the knobs passed to the geometric face detector.
type DetectParams struct {
	MinSize      int
	ScaleStep    float64
	MinNeighbors int
}

// Detector finds candidate face boxes in an image. Implemented by the
// detector service client.
type Detector interface {
	DetectFaces(ctx context.Context, imageData []byte, params DetectParams) ([]PixelBox, error)
}

// RawResponseSink retains unparseable service replies for later inspection.
// Implemented by the story artifact store.
type RawResponseSink interface {
	WriteRawResponse(storyID, name, text string) error
}

// Extractor produces face appearances per page. The primary path reads
// identity matches from generation-quality metadata; the fallback path runs
// the detector and validates candidates with the reasoning provider.
type Extractor struct {
	detector Detector
	reasoner ai.Provider
	tuning   config.ExtractionTuning
	rawSink  RawResponseSink
	log      *logrus.Logger

	// The reasoning service enforces per-minute rate limits; consecutive
	// fallback validation calls are spaced by reasoningDelay.
	reasoningDelay    time.Duration
	lastReasoningCall time.Time
}

func NewExtractor(det Detector, reasoner ai.Provider, tuning config.ExtractionTuning, reasoningDelay time.Duration, rawSink RawResponseSink, log *logrus.Logger) *Extractor {
	return &Extractor{
		detector:       det,
		reasoner:       reasoner,
		tuning:         tuning,
		rawSink:        rawSink,
		log:            log,
		reasoningDelay: reasoningDelay,
	}
}

func (e *Extractor) thumbnailParams() ThumbnailParams {
	return ThumbnailParams{
		PaddingRatio: e.tuning.CropPaddingRatio,
		MinFraction:  e.tuning.MinCropFraction,
		Size:         e.tuning.ThumbnailSize,
	}
}

// ExtractPage produces the appearances for one page. Metadata present means
// the primary path; a page without metadata goes through the fallback chain.
// Service failures are degraded to zero appearances for the page, never
// propagated: a page with no extractable faces is a valid result.
func (e *Extractor) ExtractPage(ctx context.Context, page *story.PageImage, meta *story.QualityMetadata, roster []string) []Appearance {
	if meta != nil {
		return e.extractFromMetadata(page, meta, roster)
	}
	return e.extractFallback(ctx, page, roster)
}

// extractFromMetadata converts identity-match entries into appearances.
func (e *Extractor) extractFromMetadata(page *story.PageImage, meta *story.QualityMetadata, roster []string) []Appearance {
	appearances := make([]Appearance, 0, len(meta.IdentityMatches))
	for _, match := range meta.IdentityMatches {
		if match.Status != story.StatusMatched || match.Character == "" {
			continue
		}

		character := match.Character
		if canonical, ok := MatchRosterName(match.Character, roster); ok {
			character = canonical
		}

		box := Denormalize(match.BoundingBox, page.Width, page.Height)
		region := ThumbnailRegion(box, page.Width, page.Height, e.thumbnailParams())
		thumbnail, err := RenderThumbnail(page.Data, region, e.tuning.ThumbnailSize)
		if err != nil {
			e.log.WithFields(logrus.Fields{
				"page":      page.PageNumber,
				"character": character,
			}).WithError(err).Warn("failed to render thumbnail, skipping face")
			continue
		}

		appearances = append(appearances, Appearance{
			Character:    character,
			PageNumber:   page.PageNumber,
			FaceID:       uuid.NewString(),
			BoundingBox:  box.Normalize(page.Width, page.Height),
			Thumbnail:    thumbnail,
			SourceMethod: SourceEvaluation,
			Confidence:   match.Confidence,
		})
	}
	return appearances
}

// extractFallback runs the geometric detector with permissive parameters,
// suppresses overlapping candidates, and asks the reasoning provider to
// validate the surviving crops in one batch.
func (e *Extractor) extractFallback(ctx context.Context, page *story.PageImage, roster []string) []Appearance {
	pageLog := e.log.WithField("page", page.PageNumber)

	if e.reasoner == nil {
		pageLog.Warn("no reasoning provider configured, cannot validate fallback candidates")
		return nil
	}

	candidates, err := e.detector.DetectFaces(ctx, page.Data, DetectParams{
		MinSize:      e.tuning.DetectorMinSize,
		ScaleStep:    e.tuning.DetectorScaleStep,
		MinNeighbors: e.tuning.DetectorMinNeighbors,
	})
	if err != nil {
		pageLog.WithError(err).Warn("face detector unavailable, no fallback appearances")
		return nil
	}
	if len(candidates) == 0 {
		return nil
	}

	kept := SuppressOverlapping(candidates, e.tuning.NMSIoUThreshold)
	pageLog.WithFields(logrus.Fields{
		"candidates": len(candidates),
		"kept":       len(kept),
	}).Debug("deduplicated detector candidates")

	crops := make([][]byte, 0, len(kept))
	boxes := make([]PixelBox, 0, len(kept))
	for _, box := range kept {
		region := ThumbnailRegion(box, page.Width, page.Height, e.thumbnailParams())
		crop, err := RenderThumbnail(page.Data, region, e.tuning.ThumbnailSize)
		if err != nil {
			pageLog.WithError(err).Warn("failed to crop detector candidate")
			continue
		}
		crops = append(crops, crop)
		boxes = append(boxes, box)
	}
	if len(crops) == 0 {
		return nil
	}

	if err := e.throttleReasoning(ctx); err != nil {
		pageLog.WithError(err).Warn("fallback validation cancelled")
		return nil
	}
	judgments, err := e.reasoner.ValidateFaceCrops(ctx, crops, roster)
	if err != nil {
		pageLog.WithError(err).Warn("face validation unavailable, no fallback appearances")
		e.retainRawResponse(page, err)
		return nil
	}

	var appearances []Appearance
	for _, j := range judgments {
		if !j.UsableFace {
			continue
		}
		if j.Index < 0 || j.Index >= len(boxes) {
			pageLog.WithField("index", j.Index).Warn("validation referenced unknown crop, skipping")
			continue
		}

		character, ok := MatchRosterName(j.Character, roster)
		if !ok {
			pageLog.WithField("label", j.Character).Debug("validated face matches no roster character, skipping")
			continue
		}

		confidence := j.Confidence
		if confidence <= 0 {
			confidence = 0.8
		}
		confidence *= fallbackConfidenceScale

		appearances = append(appearances, Appearance{
			Character:    character,
			PageNumber:   page.PageNumber,
			FaceID:       uuid.NewString(),
			BoundingBox:  boxes[j.Index].Normalize(page.Width, page.Height),
			Thumbnail:    crops[j.Index],
			SourceMethod: SourceFallback,
			Confidence:   confidence,
		})
	}
	return appearances
}

// retainRawResponse saves the unparsed reply behind a validation parse
// failure; parse failures are never silently discarded.
func (e *Extractor) retainRawResponse(page *story.PageImage, err error) {
	var parseErr *ai.ParseError
	if e.rawSink == nil || !errors.As(err, &parseErr) {
		return
	}
	name := fmt.Sprintf("validation_page_%03d.txt", page.PageNumber)
	if werr := e.rawSink.WriteRawResponse(page.StoryID, name, parseErr.Raw); werr != nil {
		e.log.WithField("page", page.PageNumber).WithError(werr).Warn("failed to retain raw service response")
	}
}

// throttleReasoning spaces consecutive reasoning calls by the configured
// delay to stay under the service's per-minute quota.
func (e *Extractor) throttleReasoning(ctx context.Context) error {
	if !e.lastReasoningCall.IsZero() && e.reasoningDelay > 0 {
		wait := e.reasoningDelay - time.Since(e.lastReasoningCall)
		if wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	e.lastReasoningCall = time.Now()
	return nil
}
