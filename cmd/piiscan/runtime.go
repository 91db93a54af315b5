package piiscan

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/redactyl/piiscan/internal/cache"
	"github.com/redactyl/piiscan/internal/config"
	"github.com/redactyl/piiscan/internal/engine"
	"github.com/redactyl/piiscan/internal/errs"
	"github.com/redactyl/piiscan/internal/nlp"
	"github.com/redactyl/piiscan/internal/registry"
	"github.com/redactyl/piiscan/internal/trace"
)

// runtime is the analysis stack assembled from configuration.
type runtime struct {
	analyzer *engine.Analyzer
	registry *registry.Registry
	nlp      nlp.Engine
	cfg      engine.Config
	// fingerprint changes whenever a setting that affects findings changes.
	fingerprint string
}

func engineConfig(fc config.FileConfig) engine.Config {
	cfg := engine.DefaultConfig()
	cfg.DefaultLanguage = nlp.NormalizeLanguage(pickString(flagLanguage, fc.Language, cfg.DefaultLanguage))
	if fc.ScoreThreshold != nil {
		cfg.DefaultScoreThreshold = *fc.ScoreThreshold
	}
	if fc.EnableTracePII != nil {
		cfg.EnableTracePII = *fc.EnableTracePII
	}
	if fc.DedupMinOverlap != nil {
		cfg.Dedup.MinOverlap = *fc.DedupMinOverlap
	}
	cfg.Workers = pickInt(flagWorkers, fc.Workers)
	return cfg
}

func languages(fc config.FileConfig, cfg engine.Config) []string {
	langs := []string{cfg.DefaultLanguage}
	for _, l := range fc.Languages {
		l = nlp.NormalizeLanguage(l)
		if l != "" && l != cfg.DefaultLanguage {
			langs = append(langs, l)
		}
	}
	return langs
}

func nlpEngine(fc config.FileConfig, langs []string) (nlp.Engine, error) {
	nc := fc.GetNLP()
	switch nc.GetEngine() {
	case "builtin":
		return nlp.NewBuiltin(langs...), nil
	case "sidecar":
		if nc.GetURL() == "" {
			return nil, errs.Invalid("nlp.url", "required for the sidecar engine")
		}
		timeout, err := nc.GetTimeout()
		if err != nil {
			return nil, err
		}
		return nlp.NewSidecar(nc.GetURL(), timeout, langs...), nil
	default:
		return nil, errs.Invalid("nlp.engine", "unknown engine %q (want builtin or sidecar)", nc.GetEngine())
	}
}

func traceSink(fc config.FileConfig) trace.Sink {
	if fc.TraceFile != nil && *fc.TraceFile != "" {
		return trace.NewJSONL(*fc.TraceFile)
	}
	return trace.Logger{Log: logger}
}

// buildRuntime assembles registry, linguistic engine, trace sink and
// orchestrator from fc and the global flags.
func buildRuntime(fc config.FileConfig) (*runtime, error) {
	cfg := engineConfig(fc)
	langs := languages(fc, cfg)

	reg := registry.NewDefault(langs...)
	if err := reg.LoadDefinitions(fc.Recognizers); err != nil {
		return nil, fmt.Errorf("custom recognizers: %w", err)
	}
	for _, name := range fc.DisableRecognizers {
		if !reg.Remove(name) {
			logger.Warn("disable_recognizers: unknown recognizer", "name", name)
		}
	}

	eng, err := nlpEngine(fc, langs)
	if err != nil {
		return nil, err
	}
	a, err := engine.New(cfg, eng, reg, engine.WithTrace(traceSink(fc)), engine.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return &runtime{
		analyzer:    a,
		registry:    reg,
		nlp:         eng,
		cfg:         cfg,
		fingerprint: fingerprint(fc, cfg, reg),
	}, nil
}

func fingerprint(fc config.FileConfig, cfg engine.Config, reg *registry.Registry) string {
	parts := []string{
		version,
		cfg.DefaultLanguage,
		strconv.FormatFloat(cfg.Dedup.MinOverlap, 'g', -1, 64),
		fc.GetNLP().GetEngine(),
	}
	for _, r := range reg.All() {
		parts = append(parts, r.Name())
	}
	if defs, err := yaml.Marshal(fc.Recognizers); err == nil {
		parts = append(parts, string(defs))
	}
	return cache.Fingerprint(parts...)
}
