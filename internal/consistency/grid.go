package consistency

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/sirupsen/logrus"

	"github.com/chrofis/magicalstory/internal/ai"
	"github.com/chrofis/magicalstory/internal/config"
	"github.com/chrofis/magicalstory/internal/faces"
)

// GridStrategy tiles all of a character's thumbnails into one labeled
// composite and judges it with a single reasoning call. Preferred strategy:
// it trades per-appearance calls for one batched call per character.
type GridStrategy struct {
	provider ai.Provider
	grid     config.GridTuning
	log      *logrus.Logger
}

func NewGridStrategy(provider ai.Provider, grid config.GridTuning, log *logrus.Logger) *GridStrategy {
	return &GridStrategy{provider: provider, grid: grid, log: log}
}

func (s *GridStrategy) Name() string {
	return "grid"
}

func (s *GridStrategy) Analyze(ctx context.Context, character string, apps []faces.Appearance) (*Report, error) {
	cells := make([]ai.PageFace, 0, len(apps))
	for _, a := range apps {
		cells = append(cells, ai.PageFace{PageNumber: a.PageNumber, Image: a.Thumbnail})
	}

	gridImage, err := BuildGrid(cells, s.grid.CellSize, s.grid.Columns)
	if err != nil {
		return nil, fmt.Errorf("failed to build face grid: %w", err)
	}

	pages := make([]int, len(apps))
	for i, a := range apps {
		pages[i] = a.PageNumber
	}

	judgment, err := s.provider.JudgeGridConsistency(ctx, gridImage, character, pages)
	if err != nil {
		return nil, err
	}

	report := reportFromJudgment(character, s.Name(), judgment, apps, s.log)
	return report, nil
}

// BuildGrid composites square face thumbnails into a grid, drawing the
// source page number into the corner of each cell so the reasoning service
// can reference pages in its reply.
func BuildGrid(cells []ai.PageFace, cellSize, columns int) ([]byte, error) {
	if len(cells) == 0 {
		return nil, fmt.Errorf("no cells to composite")
	}
	if cellSize <= 0 || columns <= 0 {
		return nil, fmt.Errorf("invalid grid geometry: cellSize=%d columns=%d", cellSize, columns)
	}

	if columns > len(cells) {
		columns = len(cells)
	}
	rows := (len(cells) + columns - 1) / columns

	canvas := image.NewRGBA(image.Rect(0, 0, columns*cellSize, rows*cellSize))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Gray{Y: 40}), image.Point{}, draw.Src)

	for i, cell := range cells {
		img, _, err := image.Decode(bytes.NewReader(cell.Image))
		if err != nil {
			return nil, fmt.Errorf("failed to decode thumbnail for page %d: %w", cell.PageNumber, err)
		}

		col := i % columns
		row := i / columns
		dst := image.Rect(col*cellSize, row*cellSize, (col+1)*cellSize, (row+1)*cellSize)
		draw.ApproxBiLinear.Scale(canvas, dst, img, img.Bounds(), draw.Src, nil)

		drawCellLabel(canvas, dst, strconv.Itoa(cell.PageNumber))
	}

	var buf bytes.Buffer
	// PNG keeps the page-number labels crisp.
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("failed to encode grid: %w", err)
	}
	return buf.Bytes(), nil
}

// drawCellLabel draws the page number on a dark backing strip in the top
// left corner of a cell.
func drawCellLabel(canvas *image.RGBA, cell image.Rectangle, label string) {
	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, label).Ceil()

	backing := image.Rect(cell.Min.X, cell.Min.Y, cell.Min.X+textWidth+8, cell.Min.Y+face.Height+4)
	draw.Draw(canvas, backing, image.NewUniform(color.RGBA{A: 220}), image.Point{}, draw.Over)

	d := font.Drawer{
		Dst:  canvas,
		Src:  image.White,
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(cell.Min.X + 4),
			Y: fixed.I(cell.Min.Y + face.Ascent + 2),
		},
	}
	d.DrawString(label)
}

// reportFromJudgment converts a reasoning judgment into the common report
// shape, resolving deviating page numbers back to concrete appearances.
// When a character appears more than once on a deviating page, every
// appearance of that page is flagged.
func reportFromJudgment(character, method string, judgment *ai.ConsistencyJudgment, apps []faces.Appearance, log *logrus.Logger) *Report {
	var outliers []Outlier
	for _, jo := range judgment.Outliers {
		matched := false
		for _, a := range apps {
			if a.PageNumber != jo.PageNumber {
				continue
			}
			matched = true
			outliers = append(outliers, Outlier{
				PageNumber: a.PageNumber,
				FaceID:     a.FaceID,
				Severity:   ParseSeverity(jo.Severity),
				Issues:     jo.Issues,
			})
		}
		if !matched {
			log.WithFields(logrus.Fields{
				"character": character,
				"page":      jo.PageNumber,
			}).Warn("judgment flagged a page with no appearance record, ignoring")
		}
	}

	return &Report{
		Character:          character,
		Method:             method,
		OverallConsistency: clampUnit(judgment.OverallConsistency),
		Outliers:           outliers,
		ConsistentFeatures: judgment.ConsistentFeatures,
	}
}
