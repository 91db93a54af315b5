package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redactyl/piiscan/internal/engine"
	"github.com/redactyl/piiscan/internal/errs"
	"github.com/redactyl/piiscan/internal/nlp"
	"github.com/redactyl/piiscan/internal/registry"
	"github.com/redactyl/piiscan/internal/types"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	a, err := engine.New(engine.DefaultConfig(), nlp.NewBuiltin("en", "es"), registry.NewDefault())
	require.NoError(t, err)
	srv := httptest.NewServer(NewMux(a, slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestAnalyze(t *testing.T) {
	srv := newTestServer(t)
	resp := post(t, srv, "/analyze", AnalyzeRequest{
		Text:                  "My SSN is 078-05-1120",
		Language:              "en",
		ReturnDecisionProcess: true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fs []types.Finding
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fs))
	require.NotEmpty(t, fs)
	assert.Equal(t, "US_SSN", fs[0].EntityType)
	assert.Equal(t, 10, fs[0].Start)
	assert.Equal(t, 21, fs[0].End)
	assert.NotNil(t, fs[0].Explanation)
}

func TestAnalyzeOmitsExplanationByDefault(t *testing.T) {
	srv := newTestServer(t)
	resp := post(t, srv, "/analyze", AnalyzeRequest{Text: "mail jane@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fs []types.Finding
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fs))
	require.NotEmpty(t, fs)
	for _, f := range fs {
		assert.Nil(t, f.Explanation)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	srv := newTestServer(t)
	tests := []struct {
		name string
		body any
		want int
	}{
		{"empty text", AnalyzeRequest{Text: ""}, http.StatusBadRequest},
		{"bad threshold", map[string]any{"text": "x", "score_threshold": 2}, http.StatusBadRequest},
		{"unknown language", AnalyzeRequest{Text: "hello", Language: "xx"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv, "/analyze", tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body["error"])
		})
	}

	resp, err := http.Post(srv.URL+"/analyze", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyzeSupportedLanguageWithoutRecognizers(t *testing.T) {
	srv := newTestServer(t)
	resp := post(t, srv, "/analyze", AnalyzeRequest{Text: "hola", Language: "es"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fs []types.Finding
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fs))
	assert.Empty(t, fs)
}

func TestAnonymize(t *testing.T) {
	srv := newTestServer(t)
	resp := post(t, srv, "/anonymize", AnonymizeRequest{
		AnalyzeRequest: AnalyzeRequest{Text: "mail jane@example.com now", Entities: []string{"EMAIL_ADDRESS"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out AnonymizeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "mail <EMAIL_ADDRESS> now", out.Text)
	require.Len(t, out.Items, 1)

	resp = post(t, srv, "/anonymize", AnonymizeRequest{AnalyzeRequest: AnalyzeRequest{Text: "x"}, Operator: "encrypt"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIntrospection(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/recognizers?language=en")
	require.NoError(t, err)
	defer resp.Body.Close()
	var names []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&names))
	assert.Contains(t, names, "us_ssn")

	resp2, err := http.Get(srv.URL + "/supportedentities?language=es")
	require.NoError(t, err)
	defer resp2.Body.Close()
	var ents []string
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&ents))
	assert.Empty(t, ents)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(errs.Invalid("text", "empty")))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(errs.Unsupported("xx")))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(&errs.RecognizerError{Recognizer: "r", Op: "load", Err: io.EOF}))
	assert.Equal(t, http.StatusServiceUnavailable, StatusFor(context.Canceled))
}

func TestServeListenerShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ServeListener(ctx, ln, http.NotFoundHandler(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	}()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
