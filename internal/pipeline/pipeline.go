// Package pipeline orchestrates the per-story verification run: extraction,
// consistency analysis, and repair command generation. Stages communicate
// exclusively through immutable artifacts so each can also be run alone.
package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"

	"github.com/chrofis/magicalstory/internal/consistency"
	"github.com/chrofis/magicalstory/internal/faces"
	"github.com/chrofis/magicalstory/internal/repair"
	"github.com/chrofis/magicalstory/internal/story"
)

// Runner wires the three pipeline stages together. Everything runs
// sequentially: the reasoning service enforces per-minute rate limits, so
// the serialization is a quota decision, not a correctness requirement.
type Runner struct {
	Store     *story.Store
	Extractor *faces.Extractor
	Analyzer  *consistency.Analyzer
	Generator *repair.Generator
	Log       *logrus.Logger

	// ShowProgress draws a terminal progress bar over page/character loops.
	ShowProgress bool
}

// Extract produces and writes the appearance manifest for a story.
func (r *Runner) Extract(ctx context.Context, storyID string) (*faces.Manifest, error) {
	roster, err := r.Store.LoadRoster(storyID)
	if err != nil {
		return nil, err
	}
	pages, err := r.Store.ListPages(storyID)
	if err != nil {
		return nil, err
	}

	manifest := &faces.Manifest{
		StoryID:     storyID,
		Pages:       make([]faces.PageInfo, 0, len(pages)),
		Appearances: make([]faces.Appearance, 0),
	}

	bar := r.newBar(len(pages), "Extracting faces")
	for _, pageNumber := range pages {
		page, err := r.Store.LoadPage(storyID, pageNumber)
		if err != nil {
			return nil, err
		}
		manifest.Pages = append(manifest.Pages, faces.PageInfo{
			PageNumber: pageNumber,
			Width:      page.Width,
			Height:     page.Height,
		})

		meta, err := r.Store.LoadQualityMetadata(storyID, pageNumber)
		if err != nil {
			// Metadata is optional; a broken record falls back to detection.
			r.Log.WithField("page", pageNumber).WithError(err).Warn("unreadable quality metadata, using fallback detection")
			meta = nil
		}

		appearances := r.Extractor.ExtractPage(ctx, page, meta, roster.Names())
		manifest.Appearances = append(manifest.Appearances, appearances...)

		r.Log.WithFields(logrus.Fields{
			"page":  pageNumber,
			"faces": len(appearances),
		}).Debug("page extracted")
		r.addBar(bar)
	}

	if err := r.Store.WriteArtifact(storyID, story.ArtifactAppearances, manifest); err != nil {
		return nil, err
	}
	r.Log.WithFields(logrus.Fields{
		"story":       storyID,
		"pages":       len(manifest.Pages),
		"appearances": len(manifest.Appearances),
	}).Info("appearance manifest written")
	return manifest, nil
}

// Analyze scores every character of a story and writes the consistency
// report artifact. A failure analyzing one character is recorded against
// that character only.
func (r *Runner) Analyze(ctx context.Context, storyID string) (*consistency.ReportSet, error) {
	var manifest faces.Manifest
	if err := r.Store.ReadArtifact(storyID, story.ArtifactAppearances, &manifest); err != nil {
		return nil, err
	}

	groups := manifest.ByCharacter()
	characters := make([]string, 0, len(groups))
	for name := range groups {
		characters = append(characters, name)
	}
	sort.Strings(characters)

	reports := &consistency.ReportSet{
		StoryID: storyID,
		Reports: make([]consistency.Report, 0, len(characters)),
	}

	bar := r.newBar(len(characters), "Analyzing characters")
	for _, character := range characters {
		report := r.Analyzer.AnalyzeCharacter(ctx, character, groups[character])
		reports.Reports = append(reports.Reports, report)
		r.retainRawResponse(storyID, character, report)
		r.addBar(bar)
	}

	if err := r.Store.WriteArtifact(storyID, story.ArtifactConsistency, reports); err != nil {
		return nil, err
	}
	r.Log.WithFields(logrus.Fields{
		"story":      storyID,
		"characters": len(reports.Reports),
	}).Info("consistency report written")
	return reports, nil
}

// retainRawResponse saves the unparsed reply of a failed judgment so it can
// be inspected later; parse failures are never silently discarded.
func (r *Runner) retainRawResponse(storyID, character string, report consistency.Report) {
	if report.RawResponse == "" {
		return
	}
	name := "consistency_" + character + ".txt"
	if err := r.Store.WriteRawResponse(storyID, name, report.RawResponse); err != nil {
		r.Log.WithField("character", character).WithError(err).Warn("failed to retain raw service response")
	}
}

// Repair compiles the repair command artifact from the manifest and the
// consistency reports. Always writes a valid document, even with zero
// issues.
func (r *Runner) Repair(_ context.Context, storyID string) (*repair.CommandList, error) {
	var manifest faces.Manifest
	if err := r.Store.ReadArtifact(storyID, story.ArtifactAppearances, &manifest); err != nil {
		return nil, err
	}
	var reports consistency.ReportSet
	if err := r.Store.ReadArtifact(storyID, story.ArtifactConsistency, &reports); err != nil {
		return nil, err
	}

	commands := r.Generator.Generate(&reports, &manifest)
	if err := r.Store.WriteArtifact(storyID, story.ArtifactRepairCommands, commands); err != nil {
		return nil, err
	}
	r.Log.WithFields(logrus.Fields{
		"story":  storyID,
		"issues": commands.TotalIssues,
	}).Info("repair commands written")
	return commands, nil
}

// Run executes the full pipeline for one story.
func (r *Runner) Run(ctx context.Context, storyID string) error {
	if _, err := r.Extract(ctx, storyID); err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}
	if _, err := r.Analyze(ctx, storyID); err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	if _, err := r.Repair(ctx, storyID); err != nil {
		return fmt.Errorf("repair generation failed: %w", err)
	}
	return nil
}

func (r *Runner) newBar(total int, description string) *progressbar.ProgressBar {
	if !r.ShowProgress || total == 0 {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)
}

func (r *Runner) addBar(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Add(1)
	}
}
