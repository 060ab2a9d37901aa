package postgres

import (
	"context"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/hrygo/echonote/store"
)

// UpsertNoteEmbedding inserts or updates a note embedding.
func (d *DB) UpsertNoteEmbedding(ctx context.Context, embedding *store.NoteEmbedding) (*store.NoteEmbedding, error) {
	stmt := `
		INSERT INTO note_embedding (note_id, embedding, model, created_ts, updated_ts)
		VALUES (` + placeholders(5) + `)
		ON CONFLICT (note_id, model)
		DO UPDATE SET
			embedding = EXCLUDED.embedding,
			updated_ts = EXCLUDED.updated_ts
		RETURNING id, created_ts, updated_ts
	`

	vector := pgvector.NewVector(embedding.Embedding)
	err := d.db.QueryRowContext(ctx, stmt,
		embedding.NoteID,
		vector,
		embedding.Model,
		embedding.CreatedTs,
		embedding.UpdatedTs,
	).Scan(&embedding.ID, &embedding.CreatedTs, &embedding.UpdatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert note embedding")
	}

	return embedding, nil
}

// ListNoteEmbeddings lists note embeddings.
func (d *DB) ListNoteEmbeddings(ctx context.Context, find *store.FindNoteEmbedding) ([]*store.NoteEmbedding, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.NoteID != nil {
		where, args = append(where, "note_id = "+placeholder(len(args)+1)), append(args, *find.NoteID)
	}
	if find.Model != nil {
		where, args = append(where, "model = "+placeholder(len(args)+1)), append(args, *find.Model)
	}

	query := `
		SELECT id, note_id, embedding, model, created_ts, updated_ts
		FROM note_embedding
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list note embeddings")
	}
	defer rows.Close()

	list := []*store.NoteEmbedding{}
	for rows.Next() {
		var embedding store.NoteEmbedding
		var vector pgvector.Vector
		err := rows.Scan(
			&embedding.ID,
			&embedding.NoteID,
			&vector,
			&embedding.Model,
			&embedding.CreatedTs,
			&embedding.UpdatedTs,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan note embedding")
		}

		embedding.Embedding = vector.Slice()
		list = append(list, &embedding)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// DeleteNoteEmbedding deletes a note embedding.
func (d *DB) DeleteNoteEmbedding(ctx context.Context, noteID int32) error {
	stmt := `DELETE FROM note_embedding WHERE note_id = ` + placeholder(1)
	if _, err := d.db.ExecContext(ctx, stmt, noteID); err != nil {
		return errors.Wrap(err, "failed to delete note embedding")
	}
	return nil
}

// VectorSearch performs vector similarity search using pgvector.
//
// The <=> operator computes cosine distance, so similarity is
// 1 - (embedding <=> query) and rows are ordered by distance ascending.
func (d *DB) VectorSearch(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.NoteWithScore, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT
			n.id, n.uid, n.creator_id, n.title, n.content, n.summary, n.tags,
			n.created_ts, n.updated_ts, n.deleted_ts,
			1 - (e.embedding <=> ` + placeholder(1) + `) AS score
		FROM note n
		INNER JOIN note_embedding e ON n.id = e.note_id
		WHERE n.creator_id = ` + placeholder(2) + `
			AND n.deleted_ts IS NULL
			AND 1 - (e.embedding <=> ` + placeholder(3) + `) > ` + placeholder(4) + `
		ORDER BY e.embedding <=> ` + placeholder(5) + `
		LIMIT ` + placeholder(6)

	vector := pgvector.NewVector(opts.Vector)
	rows, err := d.db.QueryContext(ctx, query,
		vector,
		opts.UserID,
		vector,
		opts.Threshold,
		vector,
		limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search")
	}
	defer rows.Close()

	results := []*store.NoteWithScore{}
	for rows.Next() {
		var result store.NoteWithScore
		var note store.Note
		var tags pq.StringArray

		err := rows.Scan(
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
			&result.Score,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan vector search result")
		}

		note.Tags = tags
		result.Note = &note
		results = append(results, &result)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// LexicalSearch performs keyword search: ranked full-text match over title and
// content, case-insensitive substring match, or exact tag match against the
// query tokens. The 'simple' text search configuration keeps multilingual
// content searchable.
func (d *DB) LexicalSearch(ctx context.Context, opts *store.LexicalSearchOptions) ([]*store.LexicalResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	tokens := opts.Tokens
	if tokens == nil {
		tokens = []string{}
	}

	query := `
		SELECT
			n.id, n.uid, n.creator_id, n.title, n.content, n.summary, n.tags,
			n.created_ts, n.updated_ts, n.deleted_ts,
			ts_rank(
				to_tsvector('simple', COALESCE(n.title, '') || ' ' || COALESCE(n.content, '')),
				plainto_tsquery('simple', ` + placeholder(1) + `)
			) AS rank
		FROM note n
		WHERE n.creator_id = ` + placeholder(2) + `
			AND n.deleted_ts IS NULL
			AND (
				to_tsvector('simple', COALESCE(n.title, '') || ' ' || COALESCE(n.content, ''))
					@@ plainto_tsquery('simple', ` + placeholder(3) + `)
				OR n.title ILIKE ` + placeholder(4) + `
				OR n.content ILIKE ` + placeholder(5) + `
				OR n.tags && ` + placeholder(6) + `
			)
		ORDER BY rank DESC, n.updated_ts DESC
		LIMIT ` + placeholder(7)

	pattern := "%" + opts.Query + "%"
	rows, err := d.db.QueryContext(ctx, query,
		opts.Query,
		opts.UserID,
		opts.Query,
		pattern,
		pattern,
		pq.Array(tokens),
		limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to lexical search")
	}
	defer rows.Close()

	results := []*store.LexicalResult{}
	for rows.Next() {
		var result store.LexicalResult
		var note store.Note
		var tags pq.StringArray

		err := rows.Scan(
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

		note.Tags = tags
		result.Note = &note
		results = append(results, &result)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// FindNotesWithoutEmbedding finds notes missing an embedding for the model.
func (d *DB) FindNotesWithoutEmbedding(ctx context.Context, find *store.FindNotesWithoutEmbedding) ([]*store.Note, error) {
	limit := find.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT
			n.id, n.uid, n.creator_id, n.title, n.content, n.summary, n.tags,
			n.created_ts, n.updated_ts, n.deleted_ts
		FROM note n
		LEFT JOIN note_embedding e ON n.id = e.note_id AND e.model = ` + placeholder(1) + `
		WHERE e.id IS NULL
			AND n.deleted_ts IS NULL
			AND LENGTH(n.content) > 0
		ORDER BY n.created_ts DESC
		LIMIT ` + placeholder(2)

	rows, err := d.db.QueryContext(ctx, query, find.Model, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find notes without embedding")
	}
	defer rows.Close()

	list := []*store.Note{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, note)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}
