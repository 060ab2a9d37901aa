package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/echonote/store"
)

// SQLite has no pgvector equivalent, so embedding storage and vector search
// are unsupported here. Lexical search is provided on a best-effort basis:
// FTS5 when the table exists, LIKE fallback otherwise.

// UpsertNoteEmbedding is not supported for SQLite.
func (*DB) UpsertNoteEmbedding(context.Context, *store.NoteEmbedding) (*store.NoteEmbedding, error) {
	return nil, errors.New("note embedding storage requires PostgreSQL with pgvector extension")
}

// ListNoteEmbeddings is not supported for SQLite.
func (*DB) ListNoteEmbeddings(context.Context, *store.FindNoteEmbedding) ([]*store.NoteEmbedding, error) {
	return nil, errors.New("note embedding storage requires PostgreSQL with pgvector extension")
}

// DeleteNoteEmbedding returns success so note deletion cascades cleanly.
func (*DB) DeleteNoteEmbedding(context.Context, int32) error {
	return nil
}

// VectorSearch is not supported for SQLite. The retriever treats this as a
// vector-path failure and continues with lexical results only.
func (*DB) VectorSearch(context.Context, *store.VectorSearchOptions) ([]*store.NoteWithScore, error) {
	return nil, store.ErrVectorSearchUnsupported
}

// FindNotesWithoutEmbedding is not supported for SQLite.
func (*DB) FindNotesWithoutEmbedding(context.Context, *store.FindNotesWithoutEmbedding) ([]*store.Note, error) {
	return nil, errors.New("note embedding features require PostgreSQL with pgvector extension")
}

// LexicalSearch performs full-text search using FTS5 when available.
func (d *DB) LexicalSearch(ctx context.Context, opts *store.LexicalSearchOptions) ([]*store.LexicalResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	// Raw query text is not valid FTS5 syntax in general; match on the
	// pre-tokenized terms instead.
	match := buildFTSMatch(opts.Tokens)
	if match == "" {
		return d.lexicalSearchFallback(ctx, opts, limit)
	}

	query := `
		SELECT
			n.id, n.uid, n.creator_id, n.title, n.content, n.summary, n.tags,
			n.created_ts, n.updated_ts, n.deleted_ts,
			-bm25(note_fts) AS score
		FROM note n
		JOIN note_fts ON n.id = note_fts.rowid
		WHERE n.creator_id = ?
			AND n.deleted_ts IS NULL
			AND note_fts MATCH ?
		ORDER BY score DESC, n.updated_ts DESC
		LIMIT ?
	`

	rows, err := d.db.QueryContext(ctx, query, opts.UserID, match, limit)
	if err != nil {
		// FTS5 table may be missing, fall back to LIKE matching.
		return d.lexicalSearchFallback(ctx, opts, limit)
	}
	defer rows.Close()

	results := []*store.LexicalResult{}
	for rows.Next() {
		result, err := scanLexicalResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// buildFTSMatch builds an FTS5 match expression ORing quoted terms, so no
// token can be misread as query syntax.
func buildFTSMatch(tokens []string) string {
	quoted := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if token == "" {
			continue
		}
		quoted = append(quoted, `"`+strings.ReplaceAll(token, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " OR ")
}

// lexicalSearchFallback matches by case-insensitive substring against title
// and content, or exact token against the JSON-encoded tag set. Every match
// ranks 1.0; recency is the secondary sort key.
func (d *DB) lexicalSearchFallback(ctx context.Context, opts *store.LexicalSearchOptions, limit int) ([]*store.LexicalResult, error) {
	where := []string{"LOWER(n.title) LIKE ?", "LOWER(n.content) LIKE ?"}
	pattern := "%" + strings.ToLower(opts.Query) + "%"
	args := []any{opts.UserID, pattern, pattern}

	for _, token := range opts.Tokens {
		where = append(where, "n.tags LIKE ?")
		args = append(args, `%"`+strings.ToLower(token)+`"%`)
	}

	query := `
		SELECT
			n.id, n.uid, n.creator_id, n.title, n.content, n.summary, n.tags,
			n.created_ts, n.updated_ts, n.deleted_ts,
			1.0 AS rank
		FROM note n
		WHERE n.creator_id = ?
			AND n.deleted_ts IS NULL
			AND (` + strings.Join(where, " OR ") + `)
		ORDER BY n.updated_ts DESC
		LIMIT ?
	`
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to lexical search")
	}
	defer rows.Close()

	results := []*store.LexicalResult{}
	for rows.Next() {
		result, err := scanLexicalResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

func scanLexicalResult(s scanner) (*store.LexicalResult, error) {
	var result store.LexicalResult
	var note store.Note
	var tags string

	err := s.Scan(
		&note.ID,
		&note.UID,
		&note.CreatorID,
		&note.Title,
		&note.Content,
		&note.Summary,
		&tags,
		&note.CreatedTs,
		&note.UpdatedTs,
		&note.DeletedTs,
		&result.Rank,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan lexical search result")
	}

	if tags != "" {
		if err := unmarshalTags(tags, &note.Tags); err != nil {
			return nil, err
		}
	}
	result.Note = &note
	return &result, nil
}
