package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chrofis/magicalstory/internal/ai"
	"github.com/chrofis/magicalstory/internal/config"
	"github.com/chrofis/magicalstory/internal/consistency"
	"github.com/chrofis/magicalstory/internal/detector"
	"github.com/chrofis/magicalstory/internal/faces"
	"github.com/chrofis/magicalstory/internal/fingerprint"
	"github.com/chrofis/magicalstory/internal/logger"
	"github.com/chrofis/magicalstory/internal/pipeline"
	"github.com/chrofis/magicalstory/internal/repair"
	"github.com/chrofis/magicalstory/internal/story"
)

// deps holds the wired pipeline for one CLI invocation.
type deps struct {
	cfg      *config.Config
	log      *logrus.Logger
	provider ai.Provider
	runner   *pipeline.Runner
}

// newProvider picks the reasoning backend from the configured credentials.
// OpenAI wins when both are set; nil means no reasoning provider.
func newProvider(ctx context.Context, cfg *config.Config) (ai.Provider, error) {
	if cfg.OpenAI.Token != "" {
		return ai.NewOpenAIProvider(cfg.OpenAI.Token), nil
	}
	if cfg.Gemini.APIKey != "" {
		return ai.NewGeminiProvider(ctx, cfg.Gemini.APIKey)
	}
	return nil, nil
}

// buildDeps wires config, clients and the pipeline runner for a command.
func buildDeps(cmd *cobra.Command) (*deps, error) {
	cfg := config.Load()
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	provider, err := newProvider(cmd.Context(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize reasoning provider: %w", err)
	}

	st := story.NewStore(cfg.Story.DataDir)

	var embedder consistency.Embedder
	if cfg.Embedding.URL != "" {
		embedder = fingerprint.NewEmbeddingClient(cfg.Embedding.URL, cfg.Embedding.Dim)
	}

	strategy, err := consistency.SelectStrategy(provider, embedder, cfg.Tuning, mustGetBool(cmd, "no-grid"), log)
	if err != nil {
		return nil, err
	}
	log.WithField("strategy", strategy.Name()).Debug("selected consistency strategy")

	reasoningDelay := time.Duration(cfg.Tuning.RateLimit.ReasoningDelaySeconds) * time.Second
	extractor := faces.NewExtractor(
		detector.NewClient(cfg.Detector.URL),
		provider,
		cfg.Tuning.Extraction,
		reasoningDelay,
		st,
		log,
	)

	runner := &pipeline.Runner{
		Store:        st,
		Extractor:    extractor,
		Analyzer:     consistency.NewAnalyzer(strategy, log),
		Generator:    repair.NewGenerator(log),
		Log:          log,
		ShowProgress: mustGetBool(cmd, "progress"),
	}

	return &deps{cfg: cfg, log: log, provider: provider, runner: runner}, nil
}

// printUsage reports reasoning token consumption after a run.
func (d *deps) printUsage() {
	if d.provider == nil {
		return
	}
	usage := d.provider.GetUsage()
	if usage.InputTokens == 0 && usage.OutputTokens == 0 {
		return
	}
	fmt.Printf("Reasoning usage (%s): %d input / %d output tokens\n",
		d.provider.Name(), usage.InputTokens, usage.OutputTokens)
}
