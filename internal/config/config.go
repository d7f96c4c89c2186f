package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed tuning.yaml
var tuningYAML []byte

type Config struct {
	Story     StoryConfig
	OpenAI    OpenAIConfig
	Gemini    GeminiConfig
	Detector  DetectorConfig
	Embedding EmbeddingConfig
	Log       LogConfig
	Tuning    TuningConfig
}

type StoryConfig struct {
	DataDir string // root directory holding per-story pages, metadata and artifacts
}

type OpenAIConfig struct {
	Token string
}

type GeminiConfig struct {
	APIKey string
}

type DetectorConfig struct {
	URL string // defaults to http://localhost:8500
}

type EmbeddingConfig struct {
	URL string // defaults to http://localhost:8000
	Dim int    // defaults to 512
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// TuningConfig holds the numeric knobs of the pipeline. Defaults come from
// the embedded tuning.yaml; individual values can be overridden by env vars.
type TuningConfig struct {
	Analysis   AnalysisTuning   `yaml:"analysis"`
	Extraction ExtractionTuning `yaml:"extraction"`
	Grid       GridTuning       `yaml:"grid"`
	RateLimit  RateLimitTuning  `yaml:"rate_limit"`
}

type AnalysisTuning struct {
	SeverityHighThreshold   float64 `yaml:"severity_high_threshold"`
	SeverityMediumThreshold float64 `yaml:"severity_medium_threshold"`
}

type ExtractionTuning struct {
	NMSIoUThreshold      float64 `yaml:"nms_iou_threshold"`
	CropPaddingRatio     float64 `yaml:"crop_padding_ratio"`
	MinCropFraction      float64 `yaml:"min_crop_fraction"`
	ThumbnailSize        int     `yaml:"thumbnail_size"`
	DetectorMinSize      int     `yaml:"detector_min_size"`
	DetectorScaleStep    float64 `yaml:"detector_scale_step"`
	DetectorMinNeighbors int     `yaml:"detector_min_neighbors"`
}

type GridTuning struct {
	CellSize int `yaml:"cell_size"`
	Columns  int `yaml:"columns"`
}

type RateLimitTuning struct {
	ReasoningDelaySeconds int `yaml:"reasoning_delay_seconds"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var tuning TuningConfig
	if err := yaml.Unmarshal(tuningYAML, &tuning); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded tuning.yaml: " + err.Error())
	}

	// Env overrides for the documented tuning knobs.
	tuning.Analysis.SeverityHighThreshold = envFloat("SEVERITY_HIGH_THRESHOLD", tuning.Analysis.SeverityHighThreshold)
	tuning.Analysis.SeverityMediumThreshold = envFloat("SEVERITY_MEDIUM_THRESHOLD", tuning.Analysis.SeverityMediumThreshold)
	tuning.Extraction.NMSIoUThreshold = envFloat("NMS_IOU_THRESHOLD", tuning.Extraction.NMSIoUThreshold)
	tuning.Extraction.CropPaddingRatio = envFloat("CROP_PADDING_RATIO", tuning.Extraction.CropPaddingRatio)
	tuning.Extraction.MinCropFraction = envFloat("MIN_CROP_FRACTION", tuning.Extraction.MinCropFraction)
	tuning.Extraction.ThumbnailSize = envInt("THUMBNAIL_SIZE", tuning.Extraction.ThumbnailSize)
	tuning.RateLimit.ReasoningDelaySeconds = envInt("REASONING_DELAY_SECONDS", tuning.RateLimit.ReasoningDelaySeconds)

	return &Config{
		Story: StoryConfig{
			DataDir: envString("STORYBOOK_DATA_DIR", "./data"),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
		Detector: DetectorConfig{
			URL: os.Getenv("DETECTOR_URL"),
		},
		Embedding: EmbeddingConfig{
			URL: os.Getenv("EMBEDDING_URL"),
			Dim: envInt("EMBEDDING_DIM", 512),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "text"),
		},
		Tuning: tuning,
	}
}
