// Package repair compiles per-character consistency outliers into one flat,
// globally ordered list of repair commands for the downstream regeneration
// step.
package repair

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/chrofis/magicalstory/internal/consistency"
	"github.com/chrofis/magicalstory/internal/faces"
	"github.com/chrofis/magicalstory/internal/story"
)

// Command describes one appearance to regenerate or touch up.
type Command struct {
	PageNumber  int                  `json:"pageNumber"`
	Character   string               `json:"character"`
	FaceID      string               `json:"faceId"`
	BoundingBox story.NormalizedBox  `json:"boundingBox"`
	Severity    consistency.Severity `json:"severity"`
	FixPrompt   string               `json:"fixPrompt"`
	Confidence  float64              `json:"confidence"`
}

// CommandList is the repair artifact for one story. It is written even when
// no issues were found, so downstream tooling always has a document to read.
type CommandList struct {
	StoryID     string    `json:"storyId"`
	TotalIssues int       `json:"totalIssues"`
	Commands    []Command `json:"commands"`
}

// Generator turns consistency reports plus the appearance manifest into a
// command list. Generation is deterministic: the same inputs always produce
// the same output.
type Generator struct {
	log *logrus.Logger
}

func NewGenerator(log *logrus.Logger) *Generator {
	return &Generator{log: log}
}

// Generate builds the globally ordered command list. Outliers whose
// (pageNumber, faceId) has no matching appearance are logged and skipped;
// they never abort generation.
func (g *Generator) Generate(reports *consistency.ReportSet, manifest *faces.Manifest) *CommandList {
	commands := make([]Command, 0)

	for _, report := range reports.Reports {
		if report.Skipped || report.AnalysisError != "" {
			continue
		}
		for _, outlier := range report.Outliers {
			appearance := manifest.Lookup(outlier.PageNumber, outlier.FaceID)
			if appearance == nil {
				g.log.WithFields(logrus.Fields{
					"character": report.Character,
					"page":      outlier.PageNumber,
					"faceId":    outlier.FaceID,
				}).Warn("outlier references no appearance record, skipping")
				continue
			}

			commands = append(commands, Command{
				PageNumber:  outlier.PageNumber,
				Character:   report.Character,
				FaceID:      outlier.FaceID,
				BoundingBox: appearance.BoundingBox,
				Severity:    outlier.Severity,
				FixPrompt:   buildFixPrompt(report.Character, outlier.Issues, report.ConsistentFeatures),
				Confidence:  confidenceFor(outlier.Severity),
			})
		}
	}

	// Reading order first, then the worst issue per page first.
	sort.SliceStable(commands, func(i, j int) bool {
		if commands[i].PageNumber != commands[j].PageNumber {
			return commands[i].PageNumber < commands[j].PageNumber
		}
		return commands[i].Severity.Rank() < commands[j].Severity.Rank()
	})

	return &CommandList{
		StoryID:     reports.StoryID,
		TotalIssues: len(commands),
		Commands:    commands,
	}
}

// confidenceFor maps severity to repair confidence.
func confidenceFor(severity consistency.Severity) float64 {
	switch severity {
	case consistency.SeverityHigh:
		return 0.9
	case consistency.SeverityMedium:
		return 0.7
	default:
		return 0.5
	}
}

// buildFixPrompt synthesizes the natural-language instruction for one
// repair: name the character, restate what drifted, and anchor the redraw
// to the character's established appearance when known.
func buildFixPrompt(character string, issues []string, consistentFeatures []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Redraw the face of %s in the marked region so it matches the character's appearance on the other pages.", character)

	if len(issues) > 0 {
		b.WriteString(" Detected problems: ")
		b.WriteString(strings.Join(issues, "; "))
		b.WriteString(".")
	}
	if len(consistentFeatures) > 0 {
		b.WriteString(" Keep the established appearance: ")
		b.WriteString(strings.Join(consistentFeatures, ", "))
		b.WriteString(".")
	}
	return b.String()
}
