package trace

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLHistoryNewestFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "trace.jsonl")
	s := NewJSONL(path)
	base := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	n := 0
	s.now = func() time.Time { n++; return base.Add(time.Duration(n) * time.Second) }

	ctx := context.Background()
	require.NoError(t, s.Record(ctx, "c1", "nlp artifacts:{}"))
	require.NoError(t, s.Record(ctx, "c1", "results:[]"))

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), st.Mode().Perm())

	events, err := s.History()
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "results:[]", events[0].Payload)
	assert.Equal(t, "c1", events[1].CorrelationID)
	assert.True(t, events[0].Timestamp.After(events[1].Timestamp))
}

func TestJSONLHistoryMissingFile(t *testing.T) {
	_, err := NewJSONL(filepath.Join(t.TempDir(), "none.jsonl")).History()
	require.Error(t, err)
}

func TestLoggerSink(t *testing.T) {
	var buf bytes.Buffer
	l := Logger{Log: slog.New(slog.NewJSONHandler(&buf, nil))}
	require.NoError(t, l.Record(context.Background(), "abc", "results:[]"))
	assert.Contains(t, buf.String(), `"correlation_id":"abc"`)
	assert.Contains(t, buf.String(), `"msg":"trace"`)
}

func TestMemoryAndMulti(t *testing.T) {
	good := &Memory{}
	bad := &Memory{Err: errors.New("disk full")}
	err := Multi{bad, good, Nop{}}.Record(context.Background(), "id", "p")
	require.EqualError(t, err, "disk full")
	require.Len(t, good.Events(), 1)
	assert.Empty(t, bad.Events())
}
