package retrieval

import (
	"strings"

	"github.com/hrygo/echonote/internal/errors"
	notesvc "github.com/hrygo/echonote/server/service/note"
	"github.com/hrygo/echonote/store"
)

const (
	// DefaultMaxNotes caps the notes per context bundle.
	DefaultMaxNotes = 5
	// DefaultMaxTotalChars caps the bundle's total excerpt size.
	DefaultMaxTotalChars = 4000
)

// Excerpt is one note's contribution to a context bundle.
type Excerpt struct {
	NoteUID string `json:"noteUid"`
	Title   string `json:"title"`
	// Excerpt is the note's title, summary and body rendered to plain text,
	// possibly truncated at a word boundary to fit the character budget.
	Excerpt string `json:"excerpt"`
	// Truncated reports whether Excerpt is a prefix of the full rendered text.
	Truncated  bool       `json:"truncated"`
	Score      float64    `json:"score"`
	Provenance Provenance `json:"provenance"`
	UpdatedTs  int64      `json:"updatedTs"`
}

// ContextBundle is the packed, ready-to-prompt result of one retrieval.
type ContextBundle struct {
	Excerpts []*Excerpt `json:"excerpts"`
	// TotalChars counts characters (runes) across all excerpts.
	TotalChars int `json:"totalChars"`
	// Matched is false when retrieval produced no candidates at all, letting
	// the caller answer from general knowledge instead of empty context.
	Matched bool `json:"matched"`
	// Degraded is true when the vector path failed and only lexical results
	// back this bundle.
	Degraded bool `json:"degraded"`
}

// PackOptions control bundle assembly. Zero values take the defaults.
type PackOptions struct {
	MaxNotes      int
	MaxTotalChars int
}

// Pack assembles a bundle from ranked candidates, walking them in order and
// fitting each note's rendered text into the remaining character budget.
// The output is deterministic: identical inputs yield an identical bundle.
func Pack(ranked []*RankedCandidate, opts PackOptions) (*ContextBundle, error) {
	maxNotes := opts.MaxNotes
	if maxNotes == 0 {
		maxNotes = DefaultMaxNotes
	}
	maxTotalChars := opts.MaxTotalChars
	if maxTotalChars == 0 {
		maxTotalChars = DefaultMaxTotalChars
	}
	if maxNotes < 0 || maxTotalChars < 0 {
		return nil, errors.PackingOverflow("context budget must be positive")
	}

	bundle := &ContextBundle{
		Excerpts: []*Excerpt{},
		Matched:  len(ranked) > 0,
	}

	for _, rc := range ranked {
		if len(bundle.Excerpts) >= maxNotes {
			break
		}
		remaining := maxTotalChars - bundle.TotalChars
		if remaining <= 0 {
			break
		}

		text, truncated := notesvc.TruncateAtWordBoundary(renderExcerpt(rc.Note), remaining)
		if text == "" {
			if truncated {
				// Budget too tight for even one word of this note. Later
				// notes would get the same budget, so stop rather than skip.
				break
			}
			// Nothing to render for this note.
			continue
		}

		bundle.Excerpts = append(bundle.Excerpts, &Excerpt{
			NoteUID:    rc.Note.UID,
			Title:      rc.Note.Title,
			Excerpt:    text,
			Truncated:  truncated,
			Score:      rc.Score,
			Provenance: rc.Provenance,
			UpdatedTs:  rc.Note.UpdatedTs,
		})
		bundle.TotalChars += len([]rune(text))
	}

	return bundle, nil
}

// renderExcerpt composes a note's prompt-ready text: title, summary and the
// body rendered from markdown to plain text, blank parts skipped.
func renderExcerpt(n *store.Note) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{n.Title, n.Summary, notesvc.RenderPlainText(n.Content)} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "\n")
}
