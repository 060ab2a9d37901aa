package retrieval

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/echonote/internal/errors"
	"github.com/hrygo/echonote/store"
)

func rankedFixture(notes ...*store.Note) []*RankedCandidate {
	ranked := make([]*RankedCandidate, 0, len(notes))
	score := 1.0
	for _, n := range notes {
		ranked = append(ranked, &RankedCandidate{
			Candidate: &Candidate{Note: n, Provenance: ProvenanceVectorOnly},
			Score:     score,
		})
		score -= 0.1
	}
	return ranked
}

// noteWithContent builds a note whose excerpt is exactly the rendered body,
// keeping the character arithmetic in budget tests simple.
func noteWithContent(id int32, uid, content string) *store.Note {
	n := testNote(id, uid, 100)
	n.Title = ""
	n.Content = content
	return n
}

func TestPackEmptyCandidates(t *testing.T) {
	bundle, err := Pack(nil, PackOptions{})
	require.NoError(t, err)
	assert.False(t, bundle.Matched)
	assert.Empty(t, bundle.Excerpts)
	assert.Zero(t, bundle.TotalChars)
}

func TestPackRespectsMaxNotes(t *testing.T) {
	notes := make([]*store.Note, 0, 8)
	for i := range 8 {
		notes = append(notes, noteWithContent(int32(i+1), string(rune('a'+i)), "short body"))
	}

	bundle, err := Pack(rankedFixture(notes...), PackOptions{MaxNotes: 3, MaxTotalChars: 1000})
	require.NoError(t, err)
	assert.True(t, bundle.Matched)
	assert.Len(t, bundle.Excerpts, 3)
	// Highest-ranked candidates get packed first.
	assert.Equal(t, "a", bundle.Excerpts[0].NoteUID)
	assert.Equal(t, "b", bundle.Excerpts[1].NoteUID)
	assert.Equal(t, "c", bundle.Excerpts[2].NoteUID)
}

func TestPackRespectsCharBudget(t *testing.T) {
	long := strings.Repeat("lorem ipsum dolor sit amet ", 500) // ~13500 chars
	bundle, err := Pack(rankedFixture(noteWithContent(1, "a", long)), PackOptions{MaxTotalChars: 500})
	require.NoError(t, err)

	require.Len(t, bundle.Excerpts, 1)
	excerpt := bundle.Excerpts[0]
	assert.True(t, excerpt.Truncated)
	assert.LessOrEqual(t, len([]rune(excerpt.Excerpt)), 500)
	assert.Equal(t, len([]rune(excerpt.Excerpt)), bundle.TotalChars)

	// The cut never splits a word.
	rendered := []rune(strings.Repeat("lorem ipsum dolor sit amet ", 500))
	cut := len([]rune(excerpt.Excerpt))
	for cut < len(rendered) && unicode.IsSpace(rendered[cut]) {
		cut++
	}
	if cut < len(rendered) {
		assert.True(t, cut == 0 || unicode.IsSpace(rendered[cut-1]),
			"truncation must land on a word boundary")
	}
}

func TestPackBudgetSpansNotes(t *testing.T) {
	first := noteWithContent(1, "a", strings.Repeat("alpha ", 20))  // 119 chars rendered
	second := noteWithContent(2, "b", strings.Repeat("beta ", 100)) // well over remaining budget

	bundle, err := Pack(rankedFixture(first, second), PackOptions{MaxNotes: 5, MaxTotalChars: 150})
	require.NoError(t, err)
	require.Len(t, bundle.Excerpts, 2)
	assert.False(t, bundle.Excerpts[0].Truncated)
	assert.True(t, bundle.Excerpts[1].Truncated)
	assert.LessOrEqual(t, bundle.TotalChars, 150)
}

func TestPackStopsWhenBudgetExhausted(t *testing.T) {
	first := noteWithContent(1, "a", strings.Repeat("alpha ", 20))
	second := noteWithContent(2, "b", "supercalifragilisticexpialidocious")

	// Remaining budget after the first note cannot fit one word of the second.
	bundle, err := Pack(rankedFixture(first, second), PackOptions{MaxNotes: 5, MaxTotalChars: 125})
	require.NoError(t, err)
	require.Len(t, bundle.Excerpts, 1)
	assert.Equal(t, "a", bundle.Excerpts[0].NoteUID)
}

func TestPackRendersMarkdown(t *testing.T) {
	note := noteWithContent(1, "a", "# Heading\n\nSome **bold** text with [a link](https://example.com).")
	bundle, err := Pack(rankedFixture(note), PackOptions{})
	require.NoError(t, err)
	require.Len(t, bundle.Excerpts, 1)

	excerpt := bundle.Excerpts[0].Excerpt
	assert.NotContains(t, excerpt, "**")
	assert.NotContains(t, excerpt, "#")
	assert.Contains(t, excerpt, "bold")
	assert.Contains(t, excerpt, "a link")
}

func TestPackComposesTitleSummaryBody(t *testing.T) {
	note := noteWithContent(1, "a", "The roadmap targets October.")
	note.Title = "Q3 planning"
	note.Summary = "Launch planning session"

	bundle, err := Pack(rankedFixture(note), PackOptions{})
	require.NoError(t, err)
	require.Len(t, bundle.Excerpts, 1)
	assert.Equal(t, "Q3 planning\nLaunch planning session\nThe roadmap targets October.", bundle.Excerpts[0].Excerpt)
}

func TestPackRejectsNegativeBudget(t *testing.T) {
	_, err := Pack(rankedFixture(testNote(1, "a", 100)), PackOptions{MaxTotalChars: -1})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodePackingOverflow))
}

func TestPackIsByteDeterministic(t *testing.T) {
	notes := []*store.Note{
		noteWithContent(1, "a", strings.Repeat("first note body ", 40)),
		noteWithContent(2, "b", strings.Repeat("second note body ", 40)),
		noteWithContent(3, "c", "third"),
	}

	first, err := Pack(rankedFixture(notes...), PackOptions{MaxTotalChars: 700})
	require.NoError(t, err)
	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)

	for range 5 {
		again, err := Pack(rankedFixture(notes...), PackOptions{MaxTotalChars: 700})
		require.NoError(t, err)
		againJSON, err := json.Marshal(again)
		require.NoError(t, err)
		assert.Equal(t, string(firstJSON), string(againJSON))
	}
}
