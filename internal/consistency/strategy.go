package consistency

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/chrofis/magicalstory/internal/ai"
	"github.com/chrofis/magicalstory/internal/config"
	"github.com/chrofis/magicalstory/internal/faces"
)

// Strategy scores one character's full appearance set and flags outliers.
// The three implementations are interchangeable and produce the common
// Report shape.
type Strategy interface {
	Name() string
	Analyze(ctx context.Context, character string, apps []faces.Appearance) (*Report, error)
}

// SelectStrategy picks the best available strategy. Priority: grid-composite
// judgment, then per-image judgment, then embedding similarity.
func SelectStrategy(provider ai.Provider, embedder Embedder, tuning config.TuningConfig, disableGrid bool, log *logrus.Logger) (Strategy, error) {
	if provider != nil {
		if !disableGrid {
			return NewGridStrategy(provider, tuning.Grid, log), nil
		}
		return NewPerImageStrategy(provider, log), nil
	}
	if embedder != nil {
		return NewEmbeddingStrategy(embedder, tuning.Analysis, log), nil
	}
	return nil, errors.New("no consistency strategy available: configure a reasoning provider or an embedding service")
}

// Analyzer runs one strategy over every character of a story.
type Analyzer struct {
	strategy Strategy
	log      *logrus.Logger
}

func NewAnalyzer(strategy Strategy, log *logrus.Logger) *Analyzer {
	return &Analyzer{strategy: strategy, log: log}
}

// AnalyzeCharacter produces the report for one character. Characters with
// fewer than two appearances are marked skipped, never silently dropped.
// A strategy failure is recorded in the report instead of aborting the
// remaining characters.
func (a *Analyzer) AnalyzeCharacter(ctx context.Context, character string, apps []faces.Appearance) Report {
	if len(apps) < 2 {
		return Report{
			Character:  character,
			Method:     a.strategy.Name(),
			Outliers:   []Outlier{},
			Skipped:    true,
			SkipReason: "fewer than two appearances, nothing to compare",
		}
	}

	report, err := a.strategy.Analyze(ctx, character, apps)
	if err != nil {
		a.log.WithField("character", character).WithError(err).Warn("consistency analysis failed for character")
		failed := Report{
			Character:     character,
			Method:        a.strategy.Name(),
			Outliers:      []Outlier{},
			AnalysisError: err.Error(),
		}
		var parseErr *ai.ParseError
		if errors.As(err, &parseErr) {
			failed.RawResponse = parseErr.Raw
		}
		return failed
	}
	if report.Outliers == nil {
		report.Outliers = []Outlier{}
	}
	return *report
}
