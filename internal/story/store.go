package story

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"
)

// Artifact file names under <storyID>/artifacts/.
const (
	ArtifactAppearances    = "appearances.json"
	ArtifactConsistency    = "consistency.json"
	ArtifactRepairCommands = "repair_commands.json"
)

// MissingArtifactError reports a required upstream file or record that is
// absent. It is the only fatal error class of the pipeline.
type MissingArtifactError struct {
	StoryID  string
	Artifact string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("missing required artifact %q for story %s", e.Artifact, e.StoryID)
}

// IsMissingArtifact reports whether err is a MissingArtifactError.
func IsMissingArtifact(err error) bool {
	var m *MissingArtifactError
	return errors.As(err, &m)
}

// Store reads story inputs and writes pipeline artifacts under a data root:
//
//	<root>/<storyID>/pages/page_003.png
//	<root>/<storyID>/quality/page_003.json
//	<root>/<storyID>/roster.json
//	<root>/<storyID>/artifacts/appearances.json
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

func (s *Store) storyDir(storyID string) string {
	return filepath.Join(s.root, storyID)
}

func pageFileName(pageNumber int, ext string) string {
	return fmt.Sprintf("page_%03d%s", pageNumber, ext)
}

// ListPages returns the page numbers present for a story, ascending.
func (s *Store) ListPages(storyID string) ([]int, error) {
	dir := filepath.Join(s.storyDir(storyID), "pages")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &MissingArtifactError{StoryID: storyID, Artifact: "pages"}
		}
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}

	var pages []int
	for _, e := range entries {
		name := e.Name()
		ext := filepath.Ext(name)
		base := strings.TrimSuffix(name, ext)
		if !strings.HasPrefix(base, "page_") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(base, "page_"))
		if err != nil {
			continue
		}
		pages = append(pages, n)
	}
	sort.Ints(pages)
	return pages, nil
}

// LoadPage reads a page image and decodes its dimensions.
func (s *Store) LoadPage(storyID string, pageNumber int) (*PageImage, error) {
	dir := filepath.Join(s.storyDir(storyID), "pages")
	var data []byte
	var err error
	for _, ext := range []string{".png", ".jpg", ".jpeg"} {
		data, err = os.ReadFile(filepath.Join(dir, pageFileName(pageNumber, ext)))
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, &MissingArtifactError{StoryID: storyID, Artifact: fmt.Sprintf("page %d", pageNumber)}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode page %d: %w", pageNumber, err)
	}

	return &PageImage{
		StoryID:    storyID,
		PageNumber: pageNumber,
		Data:       data,
		Width:      cfg.Width,
		Height:     cfg.Height,
	}, nil
}

// LoadQualityMetadata reads the generation quality record for a page.
// Returns (nil, nil) when no metadata exists; that is not an error.
func (s *Store) LoadQualityMetadata(storyID string, pageNumber int) (*QualityMetadata, error) {
	path := filepath.Join(s.storyDir(storyID), "quality", pageFileName(pageNumber, ".json"))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read quality metadata for page %d: %w", pageNumber, err)
	}

	var meta QualityMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse quality metadata for page %d: %w", pageNumber, err)
	}
	return &meta, nil
}

// LoadRoster reads the expected character roster for a story.
func (s *Store) LoadRoster(storyID string) (*Roster, error) {
	data, err := os.ReadFile(filepath.Join(s.storyDir(storyID), "roster.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &MissingArtifactError{StoryID: storyID, Artifact: "roster.json"}
		}
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}

	var roster Roster
	if err := json.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}
	if roster.StoryID == "" {
		roster.StoryID = storyID
	}
	return &roster, nil
}

// WriteArtifact marshals v and writes it atomically (temp file + rename) so
// a run never leaves a half-written artifact. Re-runs overwrite wholesale.
func (s *Store) WriteArtifact(storyID, name string, v any) error {
	dir := filepath.Join(s.storyDir(storyID), "artifacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact %s: %w", name, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, name+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temp artifact: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write artifact %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close artifact %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to finalize artifact %s: %w", name, err)
	}
	return nil
}

// ReadArtifact unmarshals a previously written artifact into out. A missing
// file is reported as MissingArtifactError.
func (s *Store) ReadArtifact(storyID, name string, out any) error {
	data, err := os.ReadFile(filepath.Join(s.storyDir(storyID), "artifacts", name))
	if err != nil {
		if os.IsNotExist(err) {
			return &MissingArtifactError{StoryID: storyID, Artifact: name}
		}
		return fmt.Errorf("failed to read artifact %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse artifact %s: %w", name, err)
	}
	return nil
}

// WriteRawResponse saves an unparseable service reply next to the artifacts
// for later inspection. Best effort; the caller only logs failures.
func (s *Store) WriteRawResponse(storyID, name, text string) error {
	dir := filepath.Join(s.storyDir(storyID), "artifacts", "raw")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create raw response directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write raw response %s: %w", name, err)
	}
	return nil
}
