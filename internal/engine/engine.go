package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/redactyl/piiscan/internal/errs"
	"github.com/redactyl/piiscan/internal/logging"
	"github.com/redactyl/piiscan/internal/nlp"
	"github.com/redactyl/piiscan/internal/recognizers"
	"github.com/redactyl/piiscan/internal/trace"
	"github.com/redactyl/piiscan/internal/types"
)

// Config controls orchestrator defaults.
type Config struct {
	DefaultLanguage       string
	DefaultScoreThreshold float64
	// EnableTracePII allows the linguistic artifacts, which contain the
	// analyzed text, to be written to the trace sink.
	EnableTracePII bool
	// Workers bounds concurrent recognizer calls per request; <= 0 means GOMAXPROCS.
	Workers int
	Dedup   DedupConfig
}

// DedupConfig tunes the duplicate relation.
type DedupConfig struct {
	// MinOverlap is the fraction of the shorter span two same-type findings
	// must share to count as duplicates. 1 means only containment counts.
	MinOverlap float64
}

// DefaultConfig returns the defaults used when no configuration is given.
func DefaultConfig() Config {
	return Config{
		DefaultLanguage:       "en",
		DefaultScoreThreshold: 0,
		Dedup:                 DedupConfig{MinOverlap: 1},
	}
}

// Catalog lists recognizers and loads them on first use.
type Catalog interface {
	Recognizers(language string, entities []string, all bool) []recognizers.Recognizer
	EnsureLoaded(ctx context.Context, r recognizers.Recognizer) error
}

// Request is one analysis call.
type Request struct {
	Text     string
	Language string
	// Entities restricts the entity types reported; nil or empty means all
	// types supported for Language.
	Entities           []string
	CorrelationID      string
	ScoreThreshold     *float64
	Trace              bool
	RedactExplanations bool
}

// Analyzer is the orchestrator. It is safe for concurrent use.
type Analyzer struct {
	cfg     Config
	nlp     nlp.Engine
	catalog Catalog
	sink    trace.Sink
	log     *slog.Logger
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithTrace sets the trace sink. The default discards events.
func WithTrace(s trace.Sink) Option {
	return func(a *Analyzer) {
		if s != nil {
			a.sink = s
		}
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.log = l
		}
	}
}

// New builds an Analyzer. Zero-valued config fields take their defaults.
func New(cfg Config, engine nlp.Engine, catalog Catalog, opts ...Option) (*Analyzer, error) {
	if engine == nil || catalog == nil {
		return nil, fmt.Errorf("engine: nlp engine and catalog are required")
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en"
	}
	cfg.DefaultLanguage = nlp.NormalizeLanguage(cfg.DefaultLanguage)
	if cfg.DefaultScoreThreshold < 0 || cfg.DefaultScoreThreshold > 1 {
		return nil, errs.Invalid("default_score_threshold", "%v outside [0,1]", cfg.DefaultScoreThreshold)
	}
	if cfg.Dedup.MinOverlap == 0 {
		cfg.Dedup.MinOverlap = 1
	}
	if cfg.Dedup.MinOverlap < 0 || cfg.Dedup.MinOverlap > 1 {
		return nil, errs.Invalid("dedup_min_overlap", "%v outside (0,1]", cfg.Dedup.MinOverlap)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	a := &Analyzer{cfg: cfg, nlp: engine, catalog: catalog, sink: trace.Nop{}, log: slog.Default()}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// Config returns the effective configuration.
func (a *Analyzer) Config() Config { return a.cfg }

// Recognizers returns the recognizers supporting language, in catalog order.
func (a *Analyzer) Recognizers(language string) []recognizers.Recognizer {
	return a.catalog.Recognizers(a.language(language), nil, true)
}

// SupportedEntities returns the sorted union of entity types declared by the
// recognizers supporting language. It is recomputed on every call.
func (a *Analyzer) SupportedEntities(language string) []string {
	return entityUnion(a.Recognizers(language))
}

func (a *Analyzer) language(l string) string {
	if strings.TrimSpace(l) == "" {
		return a.cfg.DefaultLanguage
	}
	return nlp.NormalizeLanguage(l)
}

// Analyze runs every applicable recognizer over req.Text and returns the
// deduplicated findings scoring at or above the effective threshold, ordered
// by descending score. A recognizer error aborts the call and no partial
// result is returned.
func (a *Analyzer) Analyze(ctx context.Context, req Request) ([]types.Finding, error) {
	threshold, err := a.validate(req)
	if err != nil {
		return nil, err
	}
	lang := a.language(req.Language)
	if req.Trace && req.CorrelationID == "" {
		req.CorrelationID = uuid.NewString()
	}
	if req.CorrelationID != "" {
		ctx = logging.WithCorrelationID(ctx, req.CorrelationID)
	}
	log := a.log
	if id := logging.CorrelationID(ctx); id != "" {
		log = log.With("correlation_id", id)
	}
	started := time.Now()

	all := len(req.Entities) == 0
	recs := a.catalog.Recognizers(lang, req.Entities, all)
	targets := req.Entities
	if all {
		targets = entityUnion(recs)
	}
	log.Debug("recognizers selected", "language", lang, "count", len(recs), "all_entities", all)

	art, err := a.nlp.Process(ctx, req.Text, lang)
	if err != nil {
		return nil, fmt.Errorf("nlp process: %w", err)
	}
	if req.Trace && a.cfg.EnableTracePII {
		a.record(ctx, log, req.CorrelationID, "nlp artifacts:"+art.JSON())
	}

	raw, rank, err := a.dispatch(ctx, log, recs, req.Text, targets, art)
	if err != nil {
		return nil, err
	}
	if req.Trace {
		a.record(ctx, log, req.CorrelationID, "results:"+findingsJSON(raw))
	}

	kept := deduplicate(raw, rank, a.cfg.Dedup.MinOverlap)
	out := filterByScore(kept, threshold)
	if req.RedactExplanations {
		redactExplanations(out)
	}
	log.Debug("analysis complete",
		"raw", len(raw), "deduplicated", len(kept), "returned", len(out),
		"threshold", threshold, "duration", time.Since(started))
	return out, nil
}

func (a *Analyzer) validate(req Request) (float64, error) {
	if req.Text == "" {
		return 0, errs.Invalid("text", "must not be empty")
	}
	for _, e := range req.Entities {
		if strings.TrimSpace(e) == "" {
			return 0, errs.Invalid("entities", "contains an empty entity type")
		}
	}
	threshold := a.cfg.DefaultScoreThreshold
	if req.ScoreThreshold != nil {
		threshold = *req.ScoreThreshold
		if threshold < 0 || threshold > 1 {
			return 0, errs.Invalid("score_threshold", "%v outside [0,1]", threshold)
		}
	}
	return threshold, nil
}

// dispatch runs recs concurrently and concatenates their findings in
// catalog order. rank maps recognizer name to catalog position.
func (a *Analyzer) dispatch(ctx context.Context, log *slog.Logger, recs []recognizers.Recognizer, text string, targets []string, art *nlp.Artifacts) ([]types.Finding, map[string]int, error) {
	results := make([][]types.Finding, len(recs))
	rank := make(map[string]int, len(recs))
	for i, r := range recs {
		rank[r.Name()] = i
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers)
	for i, r := range recs {
		i, r := i, r
		g.Go(func() error {
			if err := a.catalog.EnsureLoaded(gctx, r); err != nil {
				return err
			}
			fs, err := r.Analyze(gctx, text, targets, art)
			if err != nil {
				return &errs.RecognizerError{Recognizer: r.Name(), Op: "analyze", Err: err}
			}
			fs, err = checkFindings(r.Name(), fs, len(text), targets)
			if err != nil {
				return err
			}
			results[i] = fs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var raw []types.Finding
	for i, fs := range results {
		if len(fs) > 0 {
			log.Debug("recognizer results", "recognizer", recs[i].Name(), "count", len(fs))
			raw = append(raw, fs...)
		}
	}
	return raw, rank, nil
}

// checkFindings stamps the producing recognizer, drops types outside targets
// and rejects malformed spans or scores.
func checkFindings(name string, fs []types.Finding, textLen int, targets []string) ([]types.Finding, error) {
	out := make([]types.Finding, 0, len(fs))
	for _, f := range fs {
		if f.Start < 0 || f.End > textLen || f.Start >= f.End {
			return nil, &errs.RecognizerError{Recognizer: name, Op: "analyze",
				Err: fmt.Errorf("span [%d,%d) outside text of length %d", f.Start, f.End, textLen)}
		}
		if f.Score < 0 || f.Score > 1 {
			return nil, &errs.RecognizerError{Recognizer: name, Op: "analyze",
				Err: fmt.Errorf("score %v outside [0,1]", f.Score)}
		}
		if !containsString(targets, f.EntityType) {
			continue
		}
		f.Recognizer = name
		out = append(out, f)
	}
	return out, nil
}

func (a *Analyzer) record(ctx context.Context, log *slog.Logger, id, payload string) {
	if err := a.sink.Record(ctx, id, payload); err != nil {
		log.Warn("trace record failed", "error", err)
	}
}

func findingsJSON(fs []types.Finding) string {
	if fs == nil {
		fs = []types.Finding{}
	}
	b, err := json.Marshal(fs)
	if err != nil {
		return "[]"
	}
	return string(b)
}
