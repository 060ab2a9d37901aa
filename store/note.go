package store

import (
	"context"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

// Note is a user-owned document captured from voice or typed input.
type Note struct {
	ID int32
	// UID is the opaque unique identifier exposed to callers.
	UID       string
	CreatorID int32
	Title     string
	// Content is the note body in markdown, the primary searchable text.
	Content   string
	Summary   string
	Tags      []string
	CreatedTs int64
	UpdatedTs int64
	// DeletedTs is the soft-delete marker. A non-nil value excludes the
	// note from every retrieval path.
	DeletedTs *int64
}

// Deleted reports whether the note is soft-deleted.
func (n *Note) Deleted() bool {
	return n.DeletedTs != nil
}

// FindNote is the find condition for notes.
type FindNote struct {
	ID        *int32
	UID       *string
	CreatorID *int32
	// IncludeDeleted includes soft-deleted notes. Retrieval paths never set it.
	IncludeDeleted bool
	Limit          *int
}

// UpdateNote is the update condition for notes.
type UpdateNote struct {
	ID        int32
	Title     *string
	Content   *string
	Summary   *string
	Tags      []string
	UpdatedTs *int64
}

// DeleteNote soft-deletes a note by setting its deleted timestamp.
type DeleteNote struct {
	ID        int32
	DeletedTs int64
}

// CreateNote creates a note, assigning a UID and timestamps when absent.
func (s *Store) CreateNote(ctx context.Context, create *Note) (*Note, error) {
	if create.UID == "" {
		create.UID = shortuuid.New()
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	if create.UpdatedTs == 0 {
		create.UpdatedTs = create.CreatedTs
	}
	return s.driver.CreateNote(ctx, create)
}

// ListNotes lists notes matching the find condition.
func (s *Store) ListNotes(ctx context.Context, find *FindNote) ([]*Note, error) {
	return s.driver.ListNotes(ctx, find)
}

// GetNote gets a single note, consulting the note cache first.
func (s *Store) GetNote(ctx context.Context, find *FindNote) (*Note, error) {
	if find.UID != nil {
		if v, ok := s.noteCache.Get(*find.UID); ok {
			note := v.(*Note)
			if note.Deleted() && !find.IncludeDeleted {
				return nil, nil
			}
			return note, nil
		}
	}

	list, err := s.driver.ListNotes(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}

	note := list[0]
	s.noteCache.Set(note.UID, note)
	return note, nil
}

// UpdateNote updates a note and invalidates its cache entry.
func (s *Store) UpdateNote(ctx context.Context, update *UpdateNote) (*Note, error) {
	if update.UpdatedTs == nil {
		now := time.Now().Unix()
		update.UpdatedTs = &now
	}
	note, err := s.driver.UpdateNote(ctx, update)
	if err != nil {
		return nil, err
	}
	s.noteCache.Delete(note.UID)
	return note, nil
}

// DeleteNote soft-deletes a note and invalidates its cache entry.
func (s *Store) DeleteNote(ctx context.Context, delete *DeleteNote) error {
	note, err := s.GetNote(ctx, &FindNote{ID: &delete.ID, IncludeDeleted: true})
	if err != nil {
		return err
	}
	if err := s.driver.DeleteNote(ctx, delete); err != nil {
		return err
	}
	if note != nil {
		s.noteCache.Delete(note.UID)
	}
	return nil
}
