package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that a store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Note model related methods.
	CreateNote(ctx context.Context, create *Note) (*Note, error)
	ListNotes(ctx context.Context, find *FindNote) ([]*Note, error)
	UpdateNote(ctx context.Context, update *UpdateNote) (*Note, error)
	DeleteNote(ctx context.Context, delete *DeleteNote) error

	// NoteEmbedding model related methods.
	UpsertNoteEmbedding(ctx context.Context, embedding *NoteEmbedding) (*NoteEmbedding, error)
	ListNoteEmbeddings(ctx context.Context, find *FindNoteEmbedding) ([]*NoteEmbedding, error)
	DeleteNoteEmbedding(ctx context.Context, noteID int32) error
	FindNotesWithoutEmbedding(ctx context.Context, find *FindNotesWithoutEmbedding) ([]*Note, error)

	// VectorSearch performs cosine similarity search over note embeddings,
	// scoped to one user, soft-deleted notes excluded.
	VectorSearch(ctx context.Context, opts *VectorSearchOptions) ([]*NoteWithScore, error)

	// LexicalSearch performs keyword/full-text search over title, content and
	// tags, scoped to one user, soft-deleted notes excluded.
	LexicalSearch(ctx context.Context, opts *LexicalSearchOptions) ([]*LexicalResult, error)
}
