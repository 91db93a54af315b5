package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redactyl/piiscan/internal/batch"
	"github.com/redactyl/piiscan/internal/engine"
	"github.com/redactyl/piiscan/internal/errs"
	"github.com/redactyl/piiscan/internal/nlp"
	"github.com/redactyl/piiscan/internal/registry"
	"github.com/redactyl/piiscan/internal/trace"
	"github.com/redactyl/piiscan/internal/types"
)

// Re-exported types. These are aliases so values flow freely between the
// facade and the internal packages.
type (
	Config      = engine.Config
	Request     = engine.Request
	Finding     = types.Finding
	FileFinding = types.FileFinding
	Explanation = types.Explanation
	ScanConfig  = batch.Config
	ScanResult  = batch.Result
	TraceSink   = trace.Sink
)

// Error kinds, for use with errors.Is.
var (
	ErrUnsupportedLanguage = errs.ErrUnsupportedLanguage
	ErrInvalidInput        = errs.ErrInvalidInput
	ErrRecognizerFailure   = errs.ErrRecognizerFailure
)

// Options configures New. The zero value gives an English analyzer with the
// builtin linguistic engine and the predefined recognizers.
type Options struct {
	Config Config
	// Languages served by the builtin engine and the predefined
	// recognizers; empty means Config.DefaultLanguage.
	Languages []string
	// SidecarURL selects the HTTP linguistic engine instead of the builtin.
	SidecarURL     string
	SidecarTimeout time.Duration
	// Recognizers holds YAML custom recognizer definitions.
	Recognizers []byte
	Trace       TraceSink
	Logger      *slog.Logger
}

// Analyzer is the public handle on the orchestrator.
type Analyzer struct {
	inner *engine.Analyzer
	reg   *registry.Registry
}

// New builds an Analyzer from opts.
func New(opts Options) (*Analyzer, error) {
	cfg := opts.Config
	if cfg.DefaultLanguage == "" && cfg.Dedup.MinOverlap == 0 && cfg.DefaultScoreThreshold == 0 {
		def := engine.DefaultConfig()
		def.EnableTracePII = cfg.EnableTracePII
		def.Workers = cfg.Workers
		cfg = def
	}
	langs := opts.Languages
	if len(langs) == 0 {
		langs = []string{cfg.DefaultLanguage}
	}

	reg := registry.NewDefault(langs...)
	if len(opts.Recognizers) > 0 {
		if err := reg.LoadYAML(opts.Recognizers); err != nil {
			return nil, fmt.Errorf("custom recognizers: %w", err)
		}
	}

	var eng nlp.Engine = nlp.NewBuiltin(langs...)
	if opts.SidecarURL != "" {
		eng = nlp.NewSidecar(opts.SidecarURL, opts.SidecarTimeout, langs...)
	}

	var eopts []engine.Option
	if opts.Trace != nil {
		eopts = append(eopts, engine.WithTrace(opts.Trace))
	}
	if opts.Logger != nil {
		eopts = append(eopts, engine.WithLogger(opts.Logger))
	}
	inner, err := engine.New(cfg, eng, reg, eopts...)
	if err != nil {
		return nil, err
	}
	return &Analyzer{inner: inner, reg: reg}, nil
}

// Analyze runs one analysis request.
func (a *Analyzer) Analyze(ctx context.Context, req Request) ([]Finding, error) {
	return a.inner.Analyze(ctx, req)
}

// AnalyzeText analyzes text in the default language with default settings.
func (a *Analyzer) AnalyzeText(ctx context.Context, text string) ([]Finding, error) {
	return a.inner.Analyze(ctx, Request{Text: text})
}

// SupportedEntities lists the entity types available for language.
func (a *Analyzer) SupportedEntities(language string) []string {
	return a.inner.SupportedEntities(language)
}

// RecognizerNames lists the recognizers serving language, in catalog order.
func (a *Analyzer) RecognizerNames(language string) []string {
	recs := a.inner.Recognizers(language)
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Name())
	}
	return out
}

// Scan analyzes a directory tree or git input described by cfg.
func (a *Analyzer) Scan(ctx context.Context, cfg ScanConfig) (ScanResult, error) {
	return batch.Scan(ctx, a.inner, cfg)
}
