package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/echonote/store"
)

func uniformVector(v float32) []float32 {
	vec := make([]float32, store.EmbeddingDim)
	for i := range vec {
		vec[i] = v
	}
	return vec
}

func TestNoteEmbeddingStore(t *testing.T) {
	if getDriverFromEnv() != "postgres" {
		t.Skip("embedding tests only work with PostgreSQL + pgvector")
	}

	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	note, err := ts.CreateNote(ctx, &store.Note{
		CreatorID: 1,
		Title:     "embedding target",
		Content:   "This note gets an embedding",
	})
	require.NoError(t, err)

	embedding := &store.NoteEmbedding{
		NoteID:    note.ID,
		Embedding: uniformVector(0.1),
		Model:     "text-embedding-3-small",
	}
	upserted, err := ts.UpsertNoteEmbedding(ctx, embedding)
	require.NoError(t, err)
	require.Equal(t, note.ID, upserted.NoteID)
	require.Greater(t, upserted.ID, int32(0))

	retrieved, err := ts.GetNoteEmbedding(ctx, note.ID, "text-embedding-3-small")
	require.NoError(t, err)
	require.NotNil(t, retrieved)
	require.Equal(t, store.EmbeddingDim, len(retrieved.Embedding))

	// Upsert with the same note and model replaces, not duplicates.
	embedding.Embedding = uniformVector(0.2)
	_, err = ts.UpsertNoteEmbedding(ctx, embedding)
	require.NoError(t, err)
	list, err := ts.ListNoteEmbeddings(ctx, &store.FindNoteEmbedding{NoteID: &note.ID})
	require.NoError(t, err)
	require.Equal(t, 1, len(list))
}

func TestVectorSearchScoping(t *testing.T) {
	if getDriverFromEnv() != "postgres" {
		t.Skip("vector search tests only work with PostgreSQL + pgvector")
	}

	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	ownerNote, err := ts.CreateNote(ctx, &store.Note{CreatorID: 10, Content: "owner note"})
	require.NoError(t, err)
	otherNote, err := ts.CreateNote(ctx, &store.Note{CreatorID: 11, Content: "other user note"})
	require.NoError(t, err)
	deletedNote, err := ts.CreateNote(ctx, &store.Note{CreatorID: 10, Content: "deleted note"})
	require.NoError(t, err)

	for _, n := range []*store.Note{ownerNote, otherNote, deletedNote} {
		_, err := ts.UpsertNoteEmbedding(ctx, &store.NoteEmbedding{
			NoteID:    n.ID,
			Embedding: uniformVector(0.1),
			Model:     "text-embedding-3-small",
		})
		require.NoError(t, err)
	}
	require.NoError(t, ts.DeleteNote(ctx, &store.DeleteNote{ID: deletedNote.ID, DeletedTs: 1}))

	results, err := ts.VectorSearch(ctx, &store.VectorSearchOptions{
		UserID:    10,
		Vector:    uniformVector(0.1),
		Threshold: 0.3,
		Limit:     10,
	})
	require.NoError(t, err)
	require.Equal(t, 1, len(results))
	require.Equal(t, ownerNote.ID, results[0].Note.ID)
	require.Greater(t, results[0].Score, float32(0.99))
}

func TestLexicalSearchScoping(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	mine, err := ts.CreateNote(ctx, &store.Note{
		CreatorID: 20,
		Title:     "Q3 planning",
		Content:   "The project roadmap targets October",
		Tags:      []string{"planning"},
	})
	require.NoError(t, err)
	_, err = ts.CreateNote(ctx, &store.Note{CreatorID: 21, Content: "someone else's roadmap"})
	require.NoError(t, err)
	gone, err := ts.CreateNote(ctx, &store.Note{CreatorID: 20, Content: "old roadmap draft"})
	require.NoError(t, err)
	require.NoError(t, ts.DeleteNote(ctx, &store.DeleteNote{ID: gone.ID, DeletedTs: 1}))

	results, err := ts.LexicalSearch(ctx, &store.LexicalSearchOptions{
		UserID: 20,
		Query:  "roadmap",
		Tokens: []string{"roadmap"},
		Limit:  10,
	})
	require.NoError(t, err)
	require.Equal(t, 1, len(results))
	require.Equal(t, mine.ID, results[0].Note.ID)
}
