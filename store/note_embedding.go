package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// EmbeddingDim is the fixed dimensionality of note embeddings. Vectors of any
// other length are invalid and must not be stored or compared.
const EmbeddingDim = 1536

// ErrVectorSearchUnsupported is returned by drivers without vector support.
// Retrieval treats it like any vector-path failure and degrades to
// lexical-only search.
var ErrVectorSearchUnsupported = errors.New("vector search is not supported by this driver")

// NoteEmbedding represents the vector embedding of a note.
type NoteEmbedding struct {
	ID        int32
	NoteID    int32
	Embedding []float32
	Model     string // e.g. "text-embedding-3-small"
	CreatedTs int64
	UpdatedTs int64
}

// FindNoteEmbedding is the find condition for note embeddings.
type FindNoteEmbedding struct {
	NoteID *int32
	Model  *string
}

// NoteWithScore is a vector search result with its cosine similarity.
type NoteWithScore struct {
	Note *Note
	// Score is 1 - cosine distance, in [-1, 1]. Higher is more similar.
	Score float32
}

// VectorSearchOptions are the options for vector similarity search.
type VectorSearchOptions struct {
	// UserID scopes the search. Required; never search across users.
	UserID int32
	Vector []float32
	// Threshold drops rows whose similarity does not exceed it.
	Threshold float32
	Limit     int
}

// LexicalResult is a lexical search result with its relevance rank.
type LexicalResult struct {
	Note *Note
	// Rank is the full-text relevance score when the driver supports ranked
	// search, or 1.0 for every match otherwise.
	Rank float32
}

// LexicalSearchOptions are the options for lexical search.
type LexicalSearchOptions struct {
	// UserID scopes the search. Required; never search across users.
	UserID int32
	// Query is matched case-insensitively against title and content.
	Query string
	// Tokens are matched exactly against note tags.
	Tokens []string
	Limit  int
}

// UpsertNoteEmbedding inserts or updates a note embedding.
func (s *Store) UpsertNoteEmbedding(ctx context.Context, embedding *NoteEmbedding) (*NoteEmbedding, error) {
	if len(embedding.Embedding) != EmbeddingDim {
		return nil, errors.Errorf("invalid embedding dimension %d, want %d", len(embedding.Embedding), EmbeddingDim)
	}
	now := time.Now().Unix()
	if embedding.CreatedTs == 0 {
		embedding.CreatedTs = now
	}
	embedding.UpdatedTs = now
	return s.driver.UpsertNoteEmbedding(ctx, embedding)
}

// GetNoteEmbedding gets the embedding of a specific note.
func (s *Store) GetNoteEmbedding(ctx context.Context, noteID int32, model string) (*NoteEmbedding, error) {
	list, err := s.driver.ListNoteEmbeddings(ctx, &FindNoteEmbedding{
		NoteID: &noteID,
		Model:  &model,
	})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// ListNoteEmbeddings lists note embeddings.
func (s *Store) ListNoteEmbeddings(ctx context.Context, find *FindNoteEmbedding) ([]*NoteEmbedding, error) {
	return s.driver.ListNoteEmbeddings(ctx, find)
}

// DeleteNoteEmbedding deletes a note embedding.
func (s *Store) DeleteNoteEmbedding(ctx context.Context, noteID int32) error {
	return s.driver.DeleteNoteEmbedding(ctx, noteID)
}

// VectorSearch performs vector similarity search scoped to one user.
func (s *Store) VectorSearch(ctx context.Context, opts *VectorSearchOptions) ([]*NoteWithScore, error) {
	if len(opts.Vector) != EmbeddingDim {
		return nil, errors.Errorf("invalid query vector dimension %d, want %d", len(opts.Vector), EmbeddingDim)
	}
	return s.driver.VectorSearch(ctx, opts)
}

// LexicalSearch performs keyword search scoped to one user.
func (s *Store) LexicalSearch(ctx context.Context, opts *LexicalSearchOptions) ([]*LexicalResult, error) {
	return s.driver.LexicalSearch(ctx, opts)
}

// FindNotesWithoutEmbedding lists notes missing an embedding for the model.
type FindNotesWithoutEmbedding struct {
	Model string
	Limit int
}

// ListNotesWithoutEmbedding finds notes that still need an embedding.
func (s *Store) ListNotesWithoutEmbedding(ctx context.Context, find *FindNotesWithoutEmbedding) ([]*Note, error) {
	return s.driver.FindNotesWithoutEmbedding(ctx, find)
}
