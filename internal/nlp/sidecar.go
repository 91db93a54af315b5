package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redactyl/piiscan/internal/errs"
)

// Sidecar calls an external NLP service's /process endpoint. Unlike a
// best-effort classifier it reports every failure: recognizers rely on the
// artifacts being complete.
type Sidecar struct {
	url       string
	languages []string
	http      *http.Client
}

// NewSidecar creates a client for baseURL (e.g. "http://nlp:8001").
func NewSidecar(baseURL string, timeout time.Duration, languages ...string) *Sidecar {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	var langs []string
	for _, l := range languages {
		if n := NormalizeLanguage(l); n != "" && !containsLanguage(langs, n) {
			langs = append(langs, n)
		}
	}
	if len(langs) == 0 {
		langs = []string{"en"}
	}
	return &Sidecar{
		url:       strings.TrimRight(baseURL, "/") + "/process",
		languages: langs,
		http:      &http.Client{Timeout: timeout},
	}
}

type processRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// SupportedLanguages implements Engine.
func (s *Sidecar) SupportedLanguages() []string {
	return append([]string(nil), s.languages...)
}

// Process implements Engine.
func (s *Sidecar) Process(ctx context.Context, text, language string) (*Artifacts, error) {
	lang := NormalizeLanguage(language)
	if !containsLanguage(s.languages, lang) {
		return nil, errs.Unsupported(language)
	}
	body, err := json.Marshal(processRequest{Text: text, Language: lang})
	if err != nil {
		return nil, fmt.Errorf("nlp sidecar: marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("nlp sidecar: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nlp sidecar: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnprocessableEntity:
		return nil, errs.Unsupported(language)
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("nlp sidecar: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var art Artifacts
	if err := json.NewDecoder(resp.Body).Decode(&art); err != nil {
		return nil, fmt.Errorf("nlp sidecar: decode: %w", err)
	}
	if art.Language == "" {
		art.Language = lang
	}
	art.Engine = "sidecar"
	for i := range art.Tokens {
		if art.Tokens[i].Lemma == "" {
			art.Tokens[i].Lemma = Lemmatize(art.Tokens[i].Text)
		}
	}
	for i := range art.Entities {
		e := &art.Entities[i]
		if e.Text == "" && e.Start >= 0 && e.End <= len(text) && e.Start < e.End {
			e.Text = text[e.Start:e.End]
		}
	}
	return &art, nil
}
