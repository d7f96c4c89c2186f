package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/chrofis/magicalstory/internal/config"
	"github.com/chrofis/magicalstory/internal/consistency"
	"github.com/chrofis/magicalstory/internal/faces"
	"github.com/chrofis/magicalstory/internal/repair"
	"github.com/chrofis/magicalstory/internal/story"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type fakeDetector struct{}

func (fakeDetector) DetectFaces(context.Context, []byte, faces.DetectParams) ([]faces.PixelBox, error) {
	return nil, nil
}

// orderedEmbedder hands out vectors in call order; the extractor produces
// appearances in ascending page order, so call order follows pages.
type orderedEmbedder struct {
	vectors [][]float32
	next    int
}

func (e *orderedEmbedder) ComputeFaceEmbedding(context.Context, []byte) ([]float32, error) {
	if e.next >= len(e.vectors) {
		return nil, fmt.Errorf("unexpected embedding call %d", e.next)
	}
	vec := e.vectors[e.next]
	e.next++
	return vec, nil
}

func encodePage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 180, G: 160, B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode page: %v", err)
	}
	return buf.Bytes()
}

func writeFixture(t *testing.T, root, storyID string, pages int) {
	t.Helper()
	dir := filepath.Join(root, storyID)
	if err := os.MkdirAll(filepath.Join(dir, "pages"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "quality"), 0o755); err != nil {
		t.Fatal(err)
	}

	roster := `{"storyId": "` + storyID + `", "characters": [{"name": "Luna"}]}`
	if err := os.WriteFile(filepath.Join(dir, "roster.json"), []byte(roster), 0o644); err != nil {
		t.Fatal(err)
	}

	page := encodePage(t, 400, 300)
	for i := 1; i <= pages; i++ {
		name := fmt.Sprintf("page_%03d.png", i)
		if err := os.WriteFile(filepath.Join(dir, "pages", name), page, 0o644); err != nil {
			t.Fatal(err)
		}
		meta := fmt.Sprintf(`{
			"pageNumber": %d,
			"identityMatches": [
				{"character": "Luna", "status": "matched",
				 "boundingBox": {"x": 0.25, "y": 0.2, "width": 0.3, "height": 0.4},
				 "confidence": 0.9}
			]
		}`, i)
		metaName := fmt.Sprintf("page_%03d.json", i)
		if err := os.WriteFile(filepath.Join(dir, "quality", metaName), []byte(meta), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func newTestRunner(t *testing.T, root string, embedder consistency.Embedder) *Runner {
	t.Helper()
	log := testLogger()
	tuning := config.TuningConfig{
		Analysis: config.AnalysisTuning{
			SeverityHighThreshold:   0.30,
			SeverityMediumThreshold: 0.45,
		},
		Extraction: config.ExtractionTuning{
			NMSIoUThreshold:  0.3,
			CropPaddingRatio: 0.20,
			MinCropFraction:  0.10,
			ThumbnailSize:    64,
		},
	}
	st := story.NewStore(root)
	return &Runner{
		Store:     st,
		Extractor: faces.NewExtractor(fakeDetector{}, nil, tuning.Extraction, 0, st, log),
		Analyzer:  consistency.NewAnalyzer(consistency.NewEmbeddingStrategy(embedder, tuning.Analysis, log), log),
		Generator: repair.NewGenerator(log),
		Log:       log,
	}
}

func TestRunFullPipeline(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "s1", 3)

	// Pages 1 and 2 agree, page 3 drifts.
	embedder := &orderedEmbedder{vectors: [][]float32{
		{1, 0}, {1, 0}, {0, 1},
	}}
	runner := newTestRunner(t, root, embedder)

	if err := runner.Run(context.Background(), "s1"); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	var manifest faces.Manifest
	if err := runner.Store.ReadArtifact("s1", story.ArtifactAppearances, &manifest); err != nil {
		t.Fatalf("manifest not written: %v", err)
	}
	if len(manifest.Appearances) != 3 || len(manifest.Pages) != 3 {
		t.Fatalf("manifest has %d appearances over %d pages, want 3 over 3",
			len(manifest.Appearances), len(manifest.Pages))
	}

	var reports consistency.ReportSet
	if err := runner.Store.ReadArtifact("s1", story.ArtifactConsistency, &reports); err != nil {
		t.Fatalf("reports not written: %v", err)
	}
	if len(reports.Reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports.Reports))
	}
	report := reports.Reports[0]
	if report.Character != "Luna" || len(report.Outliers) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Outliers[0].PageNumber != 3 {
		t.Errorf("flagged page %d, want 3", report.Outliers[0].PageNumber)
	}

	var commands repair.CommandList
	if err := runner.Store.ReadArtifact("s1", story.ArtifactRepairCommands, &commands); err != nil {
		t.Fatalf("commands not written: %v", err)
	}
	if commands.TotalIssues != 1 || len(commands.Commands) != 1 {
		t.Fatalf("unexpected command list: %+v", commands)
	}
	cmd := commands.Commands[0]
	if cmd.PageNumber != 3 || cmd.Character != "Luna" {
		t.Errorf("unexpected command: %+v", cmd)
	}
	if cmd.FixPrompt == "" {
		t.Error("fix prompt missing")
	}
}

func TestRunCleanStoryProducesEmptyCommandList(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "s1", 2)

	embedder := &orderedEmbedder{vectors: [][]float32{
		{1, 0}, {1, 0},
	}}
	runner := newTestRunner(t, root, embedder)

	if err := runner.Run(context.Background(), "s1"); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	var commands repair.CommandList
	if err := runner.Store.ReadArtifact("s1", story.ArtifactRepairCommands, &commands); err != nil {
		t.Fatalf("commands not written: %v", err)
	}
	if commands.TotalIssues != 0 {
		t.Errorf("totalIssues = %d, want 0", commands.TotalIssues)
	}
	if commands.Commands == nil || len(commands.Commands) != 0 {
		t.Errorf("expected an empty command array, got %+v", commands.Commands)
	}
}

func TestExtractMissingRosterIsFatal(t *testing.T) {
	root := t.TempDir()
	runner := newTestRunner(t, root, &orderedEmbedder{})

	_, err := runner.Extract(context.Background(), "absent")
	if !story.IsMissingArtifact(err) {
		t.Errorf("expected MissingArtifactError, got %v", err)
	}
}

func TestAnalyzeWithoutManifestIsFatal(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "s1", 1)
	runner := newTestRunner(t, root, &orderedEmbedder{})

	_, err := runner.Analyze(context.Background(), "s1")
	if !story.IsMissingArtifact(err) {
		t.Errorf("expected MissingArtifactError, got %v", err)
	}
}

func TestExtractUnreadableMetadataFallsBack(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "s1", 2)
	// Corrupt the metadata of page 2: the page must fall back to detection
	// (which finds nothing here) instead of failing the run.
	corrupt := filepath.Join(root, "s1", "quality", "page_002.json")
	if err := os.WriteFile(corrupt, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	runner := newTestRunner(t, root, &orderedEmbedder{})
	manifest, err := runner.Extract(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if len(manifest.Appearances) != 1 {
		t.Errorf("expected 1 appearance from the intact page, got %d", len(manifest.Appearances))
	}
	if len(manifest.Pages) != 2 {
		t.Errorf("both pages must be recorded, got %d", len(manifest.Pages))
	}
}
