// Package server exposes the analyzer over HTTP with JSON bodies.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redactyl/piiscan/internal/engine"
	"github.com/redactyl/piiscan/internal/errs"
	"github.com/redactyl/piiscan/internal/logging"
	"github.com/redactyl/piiscan/internal/recognizers"
	"github.com/redactyl/piiscan/internal/redact"
	"github.com/redactyl/piiscan/internal/types"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 4 << 20

// Analyzer is what the handlers need from the orchestrator.
type Analyzer interface {
	Analyze(ctx context.Context, req engine.Request) ([]types.Finding, error)
	Recognizers(language string) []recognizers.Recognizer
	SupportedEntities(language string) []string
}

// Handler implements the HTTP endpoints.
type Handler struct {
	analyzer Analyzer
	log      *slog.Logger
}

// New returns a Handler serving a.
func New(a Analyzer, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{analyzer: a, log: log}
}

// Register mounts routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("POST /analyze", h.analyze)
	mux.HandleFunc("POST /anonymize", h.anonymize)
	mux.HandleFunc("GET /recognizers", h.recognizers)
	mux.HandleFunc("GET /supportedentities", h.supportedEntities)
}

// AnalyzeRequest is the body of POST /analyze.
type AnalyzeRequest struct {
	Text                  string   `json:"text"`
	Language              string   `json:"language,omitempty"`
	Entities              []string `json:"entities,omitempty"`
	CorrelationID         string   `json:"correlation_id,omitempty"`
	ScoreThreshold        *float64 `json:"score_threshold,omitempty"`
	ReturnDecisionProcess bool     `json:"return_decision_process,omitempty"`
	Trace                 bool     `json:"trace,omitempty"`
}

func (r AnalyzeRequest) engineRequest() engine.Request {
	return engine.Request{
		Text:               r.Text,
		Language:           r.Language,
		Entities:           r.Entities,
		CorrelationID:      r.CorrelationID,
		ScoreThreshold:     r.ScoreThreshold,
		Trace:              r.Trace,
		RedactExplanations: !r.ReturnDecisionProcess,
	}
}

// AnonymizeRequest is the body of POST /anonymize. The text is analyzed
// first, then every finding is anonymized with the given operator.
type AnonymizeRequest struct {
	AnalyzeRequest
	Operator    string `json:"operator,omitempty"`
	NewValue    string `json:"new_value,omitempty"`
	MaskChar    string `json:"masking_char,omitempty"`
	CharsToMask int    `json:"chars_to_mask,omitempty"`
	FromEnd     bool   `json:"from_end,omitempty"`
}

// AnonymizeResponse is returned by POST /anonymize.
type AnonymizeResponse struct {
	Text  string        `json:"text"`
	Items []redact.Item `json:"items"`
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx := h.context(r, req.CorrelationID)
	fs, err := h.analyzer.Analyze(ctx, req.engineRequest())
	if err != nil {
		h.fail(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, fs)
}

func (h *Handler) anonymize(w http.ResponseWriter, r *http.Request) {
	var req AnonymizeRequest
	if !h.decode(w, r, &req) {
		return
	}
	op, err := redact.ParseOperator(req.Operator)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	opts := redact.Options{Operator: op, NewValue: req.NewValue, CharsToMask: req.CharsToMask, FromEnd: req.FromEnd}
	if req.MaskChar != "" {
		opts.MaskChar = []rune(req.MaskChar)[0]
	}
	ctx := h.context(r, req.CorrelationID)
	fs, err := h.analyzer.Analyze(ctx, req.engineRequest())
	if err != nil {
		h.fail(ctx, w, err)
		return
	}
	text, items, err := redact.Anonymize(req.Text, fs, opts)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, AnonymizeResponse{Text: text, Items: items})
}

func (h *Handler) recognizers(w http.ResponseWriter, r *http.Request) {
	recs := h.analyzer.Recognizers(r.URL.Query().Get("language"))
	names := make([]string, 0, len(recs))
	for _, rec := range recs {
		names = append(names, rec.Name())
	}
	writeJSON(w, http.StatusOK, names)
}

func (h *Handler) supportedEntities(w http.ResponseWriter, r *http.Request) {
	ents := h.analyzer.SupportedEntities(r.URL.Query().Get("language"))
	if ents == nil {
		ents = []string{}
	}
	writeJSON(w, http.StatusOK, ents)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErr(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeErr(w, http.StatusBadRequest, "failed to read body: "+err.Error())
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func (h *Handler) context(r *http.Request, correlationID string) context.Context {
	ctx := r.Context()
	if correlationID != "" {
		ctx = logging.WithCorrelationID(ctx, correlationID)
	}
	return ctx
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		h.log.ErrorContext(ctx, "analysis failed", "err", err, "correlation_id", logging.CorrelationID(ctx))
	}
	writeErr(w, status, err.Error())
}

// StatusFor maps analyzer errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrUnsupportedLanguage):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, h http.Handler, log *slog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return ServeListener(ctx, ln, h, log)
}

// ServeListener is Serve on an existing listener.
func ServeListener(ctx context.Context, ln net.Listener, h http.Handler, log *slog.Logger) error {
	srv := &http.Server{
		Handler:      h,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	log.Info("listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// NewMux returns a mux with all routes registered.
func NewMux(a Analyzer, log *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	New(a, log).Register(mux)
	return mux
}
