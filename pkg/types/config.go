// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout bounds a single request, including reading the body.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "rentsense/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// OracleProvider selects the reasoning service backend.
type OracleProvider string

const (
	ProviderClaude OracleProvider = "claude"
	ProviderGemini OracleProvider = "gemini"
	// ProviderNone disables the oracle; every oracle call fails and the
	// engine runs on its deterministic fallbacks.
	ProviderNone OracleProvider = "none"
)

// OracleConfig holds settings for the reasoning oracle.
type OracleConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Provider is claude, gemini, or none.
	Provider OracleProvider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the model identifier (e.g. "gemini-2.0-flash").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey authenticates with the provider. Usually loaded from
	// .secrets/ rather than the config file.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxTokens caps the response length.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ResolutionMode controls how selected answers are matched to weight
// deltas.
type ResolutionMode string

const (
	// ResolveLabel looks strings up in the fixed label table only.
	ResolveLabel ResolutionMode = "label"
	// ResolveID matches strings and numbers against the question's option ids.
	ResolveID ResolutionMode = "id"
	// ResolveHybrid uses the label table for known labels and falls back to
	// option ids.
	ResolveHybrid ResolutionMode = "hybrid"
)

// EngineConfig parameterizes the dialogue engine. The named profiles
// returned by Profile cover the supported combinations.
type EngineConfig struct {
	// Profile is the name this configuration was built from.
	Profile string `json:"profile" yaml:"profile" mapstructure:"profile"`

	// HardQuestionCap forces results once this many questions were asked.
	HardQuestionCap int `json:"hard_question_cap" yaml:"hard_question_cap" mapstructure:"hard_question_cap"`

	// CoverageCap forces results once this many dimensions are covered.
	CoverageCap int `json:"coverage_cap" yaml:"coverage_cap" mapstructure:"coverage_cap"`

	// MinQuestions is the floor below which a low-confidence oracle cannot
	// end the dialogue.
	MinQuestions int `json:"min_questions" yaml:"min_questions" mapstructure:"min_questions"`

	// AskBelow forces another question while under MinQuestions and the
	// oracle confidence is below this value.
	AskBelow float64 `json:"ask_below" yaml:"ask_below" mapstructure:"ask_below"`

	// ShowAtOrAbove forces results once MinQuestions is reached and the
	// oracle confidence is at least this value.
	ShowAtOrAbove float64 `json:"show_at_or_above" yaml:"show_at_or_above" mapstructure:"show_at_or_above"`

	// ConsultOracle asks the oracle for a stop/continue decision. When
	// false only the caps can end the dialogue.
	ConsultOracle bool `json:"consult_oracle" yaml:"consult_oracle" mapstructure:"consult_oracle"`

	// Resolution selects how answers map to weight deltas.
	Resolution ResolutionMode `json:"resolution" yaml:"resolution" mapstructure:"resolution"`

	// TopN is the number of ranked results returned.
	TopN int `json:"top_n" yaml:"top_n" mapstructure:"top_n"`
}

// Profile names.
const (
	ProfileFixed    = "fixed"
	ProfileAdaptive = "adaptive"
	ProfileOptionID = "option-id"
)

var profiles = map[string]EngineConfig{
	ProfileFixed: {
		Profile:         ProfileFixed,
		HardQuestionCap: 4,
		CoverageCap:     7,
		MinQuestions:    0,
		AskBelow:        0.8,
		ShowAtOrAbove:   0.85,
		ConsultOracle:   false,
		Resolution:      ResolveLabel,
		TopN:            10,
	},
	ProfileAdaptive: {
		Profile:         ProfileAdaptive,
		HardQuestionCap: 10,
		CoverageCap:     7,
		MinQuestions:    2,
		AskBelow:        0.8,
		ShowAtOrAbove:   0.85,
		ConsultOracle:   true,
		Resolution:      ResolveHybrid,
		TopN:            10,
	},
	ProfileOptionID: {
		Profile:         ProfileOptionID,
		HardQuestionCap: 10,
		CoverageCap:     7,
		MinQuestions:    2,
		AskBelow:        0.8,
		ShowAtOrAbove:   0.85,
		ConsultOracle:   true,
		Resolution:      ResolveID,
		TopN:            10,
	},
}

// Profile returns the named engine configuration.
func Profile(name string) (EngineConfig, bool) {
	cfg, ok := profiles[strings.ToLower(strings.TrimSpace(name))]
	return cfg, ok
}

// ProfileNames returns the known profile names, sorted.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Validate checks that caps and thresholds are usable.
func (c EngineConfig) Validate() error {
	if c.HardQuestionCap <= 0 {
		return fmt.Errorf("hard_question_cap must be positive, got %d", c.HardQuestionCap)
	}
	if c.CoverageCap <= 0 || c.CoverageCap > DimensionCount {
		return fmt.Errorf("coverage_cap must be in [1,%d], got %d", DimensionCount, c.CoverageCap)
	}
	if c.MinQuestions < 0 {
		return fmt.Errorf("min_questions cannot be negative")
	}
	if c.AskBelow < 0 || c.AskBelow > 1 {
		return fmt.Errorf("ask_below must be in [0,1], got %v", c.AskBelow)
	}
	if c.ShowAtOrAbove < 0 || c.ShowAtOrAbove > 1 {
		return fmt.Errorf("show_at_or_above must be in [0,1], got %v", c.ShowAtOrAbove)
	}
	switch c.Resolution {
	case ResolveLabel, ResolveID, ResolveHybrid:
	default:
		return fmt.Errorf("unknown resolution mode %q: use label, id, or hybrid", c.Resolution)
	}
	if c.TopN <= 0 {
		return fmt.Errorf("top_n must be positive, got %d", c.TopN)
	}
	return nil
}

// DatasetConfig locates the candidate dataset.
type DatasetConfig struct {
	// CSVPath is the scores table produced by the offline pipeline
	// (e.g. "data/nta_scores_all.csv").
	CSVPath string `json:"csv_path" yaml:"csv_path" mapstructure:"csv_path"`

	// DBPath is the SQLite catalog built by "dataset import". When the file
	// exists it is preferred over CSVPath.
	DBPath string `json:"db_path" yaml:"db_path" mapstructure:"db_path"`
}

// ServerConfig holds HTTP transport settings.
type ServerConfig struct {
	// Addr is the listen address (e.g. ":8000").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// AllowedOrigins lists CORS origins; "*" allows any.
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" mapstructure:"allowed_origins"`

	// ReadTimeout and WriteTimeout bound each connection. WriteTimeout
	// must exceed the oracle timeout since a turn may make two oracle calls.
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`

	// MaxBodyBytes limits request bodies.
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is json or console.
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// AppConfig groups all settings for the rentsense process.
type AppConfig struct {
	Engine  EngineConfig  `json:"engine" yaml:"engine" mapstructure:"engine"`
	Oracle  OracleConfig  `json:"oracle" yaml:"oracle" mapstructure:"oracle"`
	Dataset DatasetConfig `json:"dataset" yaml:"dataset" mapstructure:"dataset"`
	Server  ServerConfig  `json:"server" yaml:"server" mapstructure:"server"`
	Logging LogConfig     `json:"logging" yaml:"logging" mapstructure:"logging"`
}

// DefaultAppConfig returns the configuration used when no file or flag
// overrides a value.
func DefaultAppConfig() AppConfig {
	engine, _ := Profile(ProfileAdaptive)
	return AppConfig{
		Engine: engine,
		Oracle: OracleConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   20 * time.Second,
				UserAgent: "rentsense/0.1",
			},
			Provider:  ProviderGemini,
			Model:     "gemini-2.0-flash",
			MaxTokens: 1024,
		},
		Dataset: DatasetConfig{
			CSVPath: "data/nta_scores_all.csv",
			DBPath:  "data/rentsense.db",
		},
		Server: ServerConfig{
			Addr:           ":8000",
			AllowedOrigins: []string{"*"},
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   60 * time.Second,
			MaxBodyBytes:   1 << 20,
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks every section.
func (c AppConfig) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	switch c.Oracle.Provider {
	case ProviderClaude, ProviderGemini, ProviderNone:
	default:
		return fmt.Errorf("oracle: unknown provider %q: use claude, gemini, or none", c.Oracle.Provider)
	}
	if c.Oracle.Provider != ProviderNone && c.Oracle.Timeout <= 0 {
		return fmt.Errorf("oracle: timeout must be positive")
	}
	if c.Dataset.CSVPath == "" && c.Dataset.DBPath == "" {
		return fmt.Errorf("dataset: csv_path or db_path is required")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server: max_body_bytes must be positive")
	}
	return nil
}
