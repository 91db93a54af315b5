package registry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redactyl/piiscan/internal/errs"
	"github.com/redactyl/piiscan/internal/nlp"
	"github.com/redactyl/piiscan/internal/recognizers"
	"github.com/redactyl/piiscan/internal/types"
)

type fakeRecognizer struct {
	recognizers.Base
	loads   atomic.Int32
	loadErr error
}

func newFake(name string, entities []string, langs ...string) *fakeRecognizer {
	if len(langs) == 0 {
		langs = []string{"en"}
	}
	return &fakeRecognizer{Base: recognizers.Base{ID: name, Entities: entities, Languages: langs}}
}

func (f *fakeRecognizer) Load(context.Context) error {
	f.loads.Add(1)
	time.Sleep(5 * time.Millisecond)
	return f.loadErr
}

func (f *fakeRecognizer) Analyze(context.Context, string, []string, *nlp.Artifacts) ([]types.Finding, error) {
	return nil, nil
}

func names(rs []recognizers.Recognizer) []string {
	var out []string
	for _, r := range rs {
		out = append(out, r.Name())
	}
	return out
}

func TestSelectionKeepsCatalogOrder(t *testing.T) {
	r := New()
	require.NoError(t, r.Add(
		newFake("a", []string{"PERSON"}),
		newFake("b", []string{"EMAIL_ADDRESS"}),
		newFake("c", []string{"PERSON", "LOCATION"}, "en", "de"),
		newFake("d", []string{"PERSON"}, "de"),
	))

	assert.Equal(t, []string{"a", "b", "c"}, names(r.Recognizers("en", nil, true)))
	assert.Equal(t, []string{"a", "c"}, names(r.Recognizers("EN", []string{"PERSON"}, false)))
	assert.Equal(t, []string{"c", "d"}, names(r.Recognizers("de", []string{"LOCATION", "PERSON"}, false)))
	assert.Empty(t, r.Recognizers("fr", nil, true))
	assert.Empty(t, r.Recognizers("en", []string{"CREDIT_CARD"}, false))

	assert.Equal(t, []string{"EMAIL_ADDRESS", "LOCATION", "PERSON"}, r.SupportedEntities("en"))
	assert.Equal(t, []string{"LOCATION", "PERSON"}, r.SupportedEntities("de"))
	assert.Equal(t, []string{"de", "en"}, r.Languages())
}

func TestAddRejectsDuplicates(t *testing.T) {
	r := New()
	require.NoError(t, r.Add(newFake("a", []string{"X"})))
	err := r.Add(newFake("a", []string{"Y"}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))
}

func TestRemoveForgetsLoadState(t *testing.T) {
	r := New()
	f := newFake("a", []string{"X"})
	require.NoError(t, r.Add(f))
	require.NoError(t, r.EnsureLoaded(context.Background(), f))
	assert.True(t, r.IsLoaded("a"))

	assert.True(t, r.Remove("a"))
	assert.False(t, r.IsLoaded("a"))
	assert.False(t, r.Remove("a"))
	_, ok := r.Get("a")
	assert.False(t, ok)
}

func TestEnsureLoadedOnceUnderContention(t *testing.T) {
	r := New()
	f := newFake("slow", []string{"X"})
	require.NoError(t, r.Add(f))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.EnsureLoaded(context.Background(), f))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), f.loads.Load())
	require.NoError(t, r.EnsureLoaded(context.Background(), f))
	assert.Equal(t, int32(1), f.loads.Load())
}

func TestEnsureLoadedFailureIsNotCached(t *testing.T) {
	r := New()
	f := newFake("bad", []string{"X"})
	f.loadErr = errors.New("model missing")
	require.NoError(t, r.Add(f))

	err := r.EnsureLoaded(context.Background(), f)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrRecognizerFailure))
	var re *errs.RecognizerError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "load", re.Op)
	assert.False(t, r.IsLoaded("bad"))

	f.loadErr = nil
	require.NoError(t, r.EnsureLoaded(context.Background(), f))
	assert.True(t, r.IsLoaded("bad"))
	assert.Equal(t, int32(2), f.loads.Load())
}

// ctxLoader fails its load when the load context is already done.
type ctxLoader struct {
	*fakeRecognizer
}

func (c ctxLoader) Load(ctx context.Context) error {
	c.loads.Add(1)
	return ctx.Err()
}

func TestEnsureLoadedIgnoresCallerCancellation(t *testing.T) {
	r := New()
	rec := ctxLoader{newFake("ctx", []string{"X"})}
	require.NoError(t, r.Add(rec))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.EnsureLoaded(ctx, rec))
	assert.True(t, r.IsLoaded("ctx"))
	assert.Equal(t, int32(1), rec.loads.Load())
}

func TestDefaultAndYAML(t *testing.T) {
	r := NewDefault()
	assert.Contains(t, r.SupportedEntities("en"), "US_SSN")
	assert.Contains(t, r.SupportedEntities("en"), "PERSON")

	err := r.LoadYAML([]byte(`
recognizers:
  - name: titles
    entity: TITLE
    deny_list: [Mr, Mrs]
`))
	require.NoError(t, err)
	rec, ok := r.Get("titles")
	require.True(t, ok)
	assert.Equal(t, []string{"TITLE"}, rec.SupportedEntities())
	assert.Equal(t, "titles", names(r.All())[len(r.All())-1])

	require.Error(t, r.LoadYAML([]byte("recognizers: [{name: x}]")))
	require.Error(t, r.LoadYAMLFile("does-not-exist.yml"))
}
