package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/redactyl/piiscan/internal/recognizers"
)

// FileConfig is the on-disk YAML configuration shape for piiscan. Pointer
// fields are nil when unset so callers can layer sources.
type FileConfig struct {
	Language           *string  `yaml:"language,omitempty"`
	Languages          []string `yaml:"languages,omitempty"`
	ScoreThreshold     *float64 `yaml:"score_threshold,omitempty"`
	Workers            *int     `yaml:"workers,omitempty"`
	Entities           []string `yaml:"entities,omitempty"`
	DisableRecognizers []string `yaml:"disable_recognizers,omitempty"`
	EnableTracePII     *bool    `yaml:"enable_trace_pii,omitempty"`
	TraceFile          *string  `yaml:"trace_file,omitempty"`
	DedupMinOverlap    *float64 `yaml:"dedup_min_overlap,omitempty"`
	LogLevel           *string  `yaml:"log_level,omitempty"`
	LogFormat          *string  `yaml:"log_format,omitempty"`
	Addr               *string  `yaml:"addr,omitempty"`

	NLP *NLPConfig `yaml:"nlp,omitempty"`

	// Custom recognizers appended after the predefined catalog.
	Recognizers []recognizers.Definition `yaml:"recognizers,omitempty"`

	// Directory scanning
	Include         *string `yaml:"include,omitempty"`
	Exclude         *string `yaml:"exclude,omitempty"`
	MaxBytes        *int64  `yaml:"max_bytes,omitempty"`
	DefaultExcludes *bool   `yaml:"default_excludes,omitempty"`
	NoCache         *bool   `yaml:"no_cache,omitempty"`
	NoColor         *bool   `yaml:"no_color,omitempty"`
}

// NLPConfig selects the linguistic analysis provider.
type NLPConfig struct {
	// Engine is "builtin" (default) or "sidecar".
	Engine *string `yaml:"engine,omitempty"`
	// URL is the sidecar base URL.
	URL *string `yaml:"url,omitempty"`
	// Timeout is a Go duration string; defaults to 10s.
	Timeout *string `yaml:"timeout,omitempty"`
}

// LoadFile reads a YAML config file from the provided path.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadLocal searches for a project-local config file in the given root.
// It supports .piiscan.yml/.yaml and piiscan.yml/.yaml.
func LoadLocal(root string) (FileConfig, error) {
	var cfg FileConfig
	for _, name := range []string{".piiscan.yml", ".piiscan.yaml", "piiscan.yml", "piiscan.yaml"} {
		p := filepath.Join(root, name)
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return cfg, errors.New("no local config")
}

// GlobalPath returns the global config location under XDG_CONFIG_HOME or ~/.config.
func GlobalPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			base = filepath.Join(home, ".config")
		}
	}
	if base == "" {
		return "", errors.New("no config dir")
	}
	return filepath.Join(base, "piiscan", "config.yml"), nil
}

// LoadGlobal loads the global config file.
func LoadGlobal() (FileConfig, error) {
	var cfg FileConfig
	p, err := GlobalPath()
	if err != nil {
		return cfg, err
	}
	if _, err := os.Stat(p); err == nil {
		return LoadFile(p)
	}
	return cfg, errors.New("no global config")
}

// Load layers local over global config and then applies the environment.
// Missing files are not an error.
func Load(root string) (FileConfig, error) {
	var cfg FileConfig
	if g, err := LoadGlobal(); err == nil {
		cfg = g
	}
	if l, err := LoadLocal(root); err == nil {
		cfg = Merge(cfg, l)
	}
	LoadDotEnv(filepath.Join(root, ".env"))
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Merge returns base with every field set in over taking precedence.
// Custom recognizers are concatenated.
func Merge(base, over FileConfig) FileConfig {
	out := base
	setPtr(&out.Language, over.Language)
	setPtr(&out.ScoreThreshold, over.ScoreThreshold)
	setPtr(&out.Workers, over.Workers)
	setPtr(&out.EnableTracePII, over.EnableTracePII)
	setPtr(&out.TraceFile, over.TraceFile)
	setPtr(&out.DedupMinOverlap, over.DedupMinOverlap)
	setPtr(&out.LogLevel, over.LogLevel)
	setPtr(&out.LogFormat, over.LogFormat)
	setPtr(&out.Addr, over.Addr)
	setPtr(&out.Include, over.Include)
	setPtr(&out.Exclude, over.Exclude)
	setPtr(&out.MaxBytes, over.MaxBytes)
	setPtr(&out.DefaultExcludes, over.DefaultExcludes)
	setPtr(&out.NoCache, over.NoCache)
	setPtr(&out.NoColor, over.NoColor)
	if over.Languages != nil {
		out.Languages = over.Languages
	}
	if over.Entities != nil {
		out.Entities = over.Entities
	}
	if over.DisableRecognizers != nil {
		out.DisableRecognizers = over.DisableRecognizers
	}
	if over.NLP != nil {
		n := NLPConfig{}
		if base.NLP != nil {
			n = *base.NLP
		}
		setPtr(&n.Engine, over.NLP.Engine)
		setPtr(&n.URL, over.NLP.URL)
		setPtr(&n.Timeout, over.NLP.Timeout)
		out.NLP = &n
	}
	out.Recognizers = append(append([]recognizers.Definition(nil), base.Recognizers...), over.Recognizers...)
	return out
}

func setPtr[T any](dst **T, src *T) {
	if src != nil {
		*dst = src
	}
}

// GetNLP returns the NLP configuration with defaults applied.
func (fc FileConfig) GetNLP() NLPConfig {
	n := NLPConfig{}
	if fc.NLP != nil {
		n = *fc.NLP
	}
	if n.Engine == nil {
		e := "builtin"
		n.Engine = &e
	}
	return n
}

// GetEngine returns the engine name or "builtin".
func (nc NLPConfig) GetEngine() string {
	if nc.Engine == nil || *nc.Engine == "" {
		return "builtin"
	}
	return *nc.Engine
}

// GetURL returns the sidecar URL or empty string.
func (nc NLPConfig) GetURL() string {
	if nc.URL == nil {
		return ""
	}
	return *nc.URL
}

// GetTimeout parses the timeout, defaulting to 10s.
func (nc NLPConfig) GetTimeout() (time.Duration, error) {
	if nc.Timeout == nil || *nc.Timeout == "" {
		return 10 * time.Second, nil
	}
	d, err := time.ParseDuration(*nc.Timeout)
	if err != nil {
		return 0, fmt.Errorf("nlp.timeout: %w", err)
	}
	return d, nil
}

// Template is the commented starter file written by `piiscan config init`.
const Template = `# piiscan configuration
language: en
# languages: [en]
score_threshold: 0.0
# workers: 4
# entities: [PERSON, EMAIL_ADDRESS, US_SSN]
# disable_recognizers: [entropy_secret]
enable_trace_pii: false
# trace_file: .piiscan/trace.jsonl
dedup_min_overlap: 1.0
log_level: info
log_format: text
nlp:
  engine: builtin
  # url: http://localhost:8001
  # timeout: 10s
# recognizers:
#   - name: employee_id
#     entity: EMPLOYEE_ID
#     patterns:
#       - name: employee id
#         regex: 'EMP-\d{6}'
#         score: 0.6
#     context: [employee]
#   - name: project_codenames
#     entity: PROJECT
#     deny_list: [Apollo, Gemini]
default_excludes: true
max_bytes: 1048576
`
