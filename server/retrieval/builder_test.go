package retrieval

import (
	"context"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/echonote/internal/errors"
	"github.com/hrygo/echonote/plugin/ai"
	"github.com/hrygo/echonote/store"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	return f.vector, f.err
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = f.vector
	}
	return vectors, f.err
}

func (f *fakeEmbedder) Dimensions() int { return len(f.vector) }

func newTestBuilder(embedder ai.EmbeddingService, searcher Searcher) *Builder {
	b := NewBuilder(embedder, NewRetriever(searcher), nil)
	b.now = func() time.Time { return rankNow }
	return b
}

func TestBuildContextRejectsInvalidInput(t *testing.T) {
	builder := newTestBuilder(&fakeEmbedder{}, &fakeSearcher{})

	tests := []struct {
		name  string
		query string
	}{
		{"empty", ""},
		{"whitespace only", "   \n\t "},
		{"over length limit", strings.Repeat("q", 2001)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := builder.BuildContext(context.Background(), 1, tt.query, Options{})
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))
		})
	}
}

func TestBuildContextProjectRoadmap(t *testing.T) {
	now := rankNow.Unix()
	roadmap := testNote(1, "roadmap", now-3600)
	roadmap.Title = "Q3 planning"
	roadmap.Content = "The project roadmap targets the beta launch in October."
	grocery := testNote(2, "grocery", now)
	grocery.Content = "Buy milk, eggs and bread."
	standup := testNote(3, "standup", now-7200)
	standup.Content = "Standup notes: roadmap review moved to Friday."

	searcher := &fakeSearcher{
		vectorResults: []*store.NoteWithScore{
			{Note: roadmap, Score: 0.92},
			{Note: grocery, Score: 0.31},
		},
		lexicalResults: []*store.LexicalResult{
			{Note: roadmap, Rank: 5.0},
			{Note: standup, Rank: 2.0},
		},
	}
	builder := newTestBuilder(&fakeEmbedder{vector: make([]float32, 4)}, searcher)

	bundle, err := builder.BuildContext(context.Background(), 1, "What is the project roadmap?", Options{})
	require.NoError(t, err)

	assert.True(t, bundle.Matched)
	assert.False(t, bundle.Degraded)
	require.Len(t, bundle.Excerpts, 3)
	assert.Equal(t, "roadmap", bundle.Excerpts[0].NoteUID)
	assert.Equal(t, ProvenanceBoth, bundle.Excerpts[0].Provenance)
	assert.Contains(t, bundle.Excerpts[0].Excerpt, "project roadmap")
}

func TestBuildContextLexicalMatchOnly(t *testing.T) {
	// The only semantically close note falls below the similarity threshold,
	// so the store returns no vector rows; the lexical path still matches.
	roadmap := testNote(1, "roadmap", rankNow.Unix())
	roadmap.Title = "Q3 Project Roadmap"
	searcher := &fakeSearcher{
		lexicalResults: []*store.LexicalResult{
			{Note: roadmap, Rank: 3.0},
		},
	}
	builder := newTestBuilder(&fakeEmbedder{vector: make([]float32, 4)}, searcher)

	bundle, err := builder.BuildContext(context.Background(), 1, "project roadmap", Options{})
	require.NoError(t, err)
	require.Len(t, bundle.Excerpts, 1)
	assert.Equal(t, "roadmap", bundle.Excerpts[0].NoteUID)
	assert.Equal(t, ProvenanceLexicalOnly, bundle.Excerpts[0].Provenance)
	assert.False(t, bundle.Degraded)
}

func TestBuildContextNoResults(t *testing.T) {
	builder := newTestBuilder(&fakeEmbedder{vector: make([]float32, 4)}, &fakeSearcher{})

	bundle, err := builder.BuildContext(context.Background(), 1, "anything about quantum physics?", Options{})
	require.NoError(t, err)
	assert.False(t, bundle.Matched)
	assert.Empty(t, bundle.Excerpts)
	assert.Zero(t, bundle.TotalChars)
}

func TestBuildContextDegradesOnEmbeddingFailure(t *testing.T) {
	searcher := &fakeSearcher{
		lexicalResults: []*store.LexicalResult{
			{Note: testNote(1, "a", rankNow.Unix()), Rank: 3.0},
		},
	}
	embedder := &fakeEmbedder{err: errors.EmbeddingUnavailable("provider down", pkgerrors.New("503"))}
	builder := newTestBuilder(embedder, searcher)

	bundle, err := builder.BuildContext(context.Background(), 1, "meeting notes", Options{})
	require.NoError(t, err)

	assert.True(t, bundle.Degraded)
	assert.True(t, bundle.Matched)
	require.Len(t, bundle.Excerpts, 1)
	assert.Equal(t, ProvenanceLexicalOnly, bundle.Excerpts[0].Provenance)
	assert.Equal(t, 0, searcher.vectorCalls)
}

func TestBuildContextWithoutEmbedder(t *testing.T) {
	searcher := &fakeSearcher{
		lexicalResults: []*store.LexicalResult{
			{Note: testNote(1, "a", rankNow.Unix()), Rank: 1.0},
		},
	}
	builder := newTestBuilder(nil, searcher)

	bundle, err := builder.BuildContext(context.Background(), 1, "meeting notes", Options{})
	require.NoError(t, err)
	// AI disabled is the configured state, not a degradation.
	assert.False(t, bundle.Degraded)
	assert.Equal(t, 0, searcher.vectorCalls)
	assert.Equal(t, 1, searcher.lexicalCalls)
}

func TestBuildContextDegradesOnRateLimit(t *testing.T) {
	searcher := &fakeSearcher{
		lexicalResults: []*store.LexicalResult{
			{Note: testNote(1, "a", rankNow.Unix()), Rank: 1.0},
		},
	}
	embedder := &fakeEmbedder{vector: make([]float32, 4)}
	limiter := ai.NewKeyedLimiter(time.Hour, 1)
	builder := NewBuilder(embedder, NewRetriever(searcher), limiter)
	builder.now = func() time.Time { return rankNow }

	first, err := builder.BuildContext(context.Background(), 1, "meeting notes", Options{})
	require.NoError(t, err)
	assert.False(t, first.Degraded)
	assert.Equal(t, 1, embedder.calls)

	second, err := builder.BuildContext(context.Background(), 1, "meeting notes", Options{})
	require.NoError(t, err)
	assert.True(t, second.Degraded)
	assert.Equal(t, 1, embedder.calls)
}

func TestBuildContextLexicalFailureIsFatal(t *testing.T) {
	searcher := &fakeSearcher{lexicalErr: pkgerrors.New("connection refused")}
	builder := newTestBuilder(&fakeEmbedder{vector: make([]float32, 4)}, searcher)

	_, err := builder.BuildContext(context.Background(), 1, "meeting notes", Options{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRetrievalFailed))
}

func TestBuildContextAppliesBudgetOptions(t *testing.T) {
	long := strings.Repeat("alpha beta gamma delta ", 500)
	note := testNote(1, "a", rankNow.Unix())
	note.Content = long
	searcher := &fakeSearcher{
		lexicalResults: []*store.LexicalResult{{Note: note, Rank: 1.0}},
	}
	builder := newTestBuilder(nil, searcher)

	bundle, err := builder.BuildContext(context.Background(), 1, "alpha", Options{MaxTotalChars: 500})
	require.NoError(t, err)
	require.Len(t, bundle.Excerpts, 1)
	assert.True(t, bundle.Excerpts[0].Truncated)
	assert.LessOrEqual(t, bundle.TotalChars, 500)
}
