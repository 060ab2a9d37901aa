// Package retrieval assembles ranked, budget-constrained note context for
// chat and semantic search: candidate retrieval, hybrid ranking and context
// packing over one user's notes.
package retrieval

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/hrygo/echonote/internal/errors"
	"github.com/hrygo/echonote/internal/observability"
	notesvc "github.com/hrygo/echonote/server/service/note"
	"github.com/hrygo/echonote/store"
)

// Provenance records which retrieval path(s) produced a candidate.
type Provenance string

const (
	ProvenanceVectorOnly  Provenance = "VECTOR_ONLY"
	ProvenanceLexicalOnly Provenance = "LEXICAL_ONLY"
	ProvenanceBoth        Provenance = "BOTH"
)

// Candidate is one note's relevance to one query. Created per query, merged,
// ranked and discarded; never persisted.
type Candidate struct {
	Note *store.Note
	// Similarity is the cosine similarity from the vector path. Valid only
	// when Provenance is VECTOR_ONLY or BOTH.
	Similarity float32
	// LexicalRank is the relevance rank from the lexical path, scaled to
	// (0, 1]. Valid only when Provenance is LEXICAL_ONLY or BOTH.
	LexicalRank float32
	Provenance  Provenance
}

// Searcher is the slice of the store the retriever depends on.
type Searcher interface {
	VectorSearch(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.NoteWithScore, error)
	LexicalSearch(ctx context.Context, opts *store.LexicalSearchOptions) ([]*store.LexicalResult, error)
}

// RetrieveOptions are the options for one retrieval call.
type RetrieveOptions struct {
	UserID int32
	Query  string
	// QueryVector enables the vector path. Nil means lexical-only.
	QueryVector []float32
	Limit       int
	// SimilarityThreshold drops vector rows at or below it. Deliberately low
	// by default to favor recall; the ranker orders the survivors.
	SimilarityThreshold float32
}

// Retriever issues the vector and lexical lookups and merges their results.
type Retriever struct {
	searcher Searcher
}

// NewRetriever creates a new Retriever.
func NewRetriever(searcher Searcher) *Retriever {
	return &Retriever{searcher: searcher}
}

// Retrieve runs both lookups concurrently and merges candidates by note UID.
//
// A vector-path failure degrades to lexical-only results. A lexical-path
// failure is fatal: without it no results are trustworthy.
func (r *Retriever) Retrieve(ctx context.Context, opts *RetrieveOptions) ([]*Candidate, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	var vectorResults []*store.NoteWithScore
	var vectorErr error
	var lexicalResults []*store.LexicalResult

	g, gctx := errgroup.WithContext(ctx)

	if opts.QueryVector != nil {
		g.Go(func() error {
			// Degrading, not fatal: the error is inspected after Wait.
			vectorResults, vectorErr = r.searcher.VectorSearch(gctx, &store.VectorSearchOptions{
				UserID:    opts.UserID,
				Vector:    opts.QueryVector,
				Threshold: opts.SimilarityThreshold,
				Limit:     limit,
			})
			return nil
		})
	}

	g.Go(func() error {
		results, err := r.searcher.LexicalSearch(gctx, &store.LexicalSearchOptions{
			UserID: opts.UserID,
			Query:  opts.Query,
			Tokens: notesvc.TokenizeQuery(opts.Query),
			Limit:  limit,
		})
		if err != nil {
			return errors.RetrievalFailed("lexical search failed", err)
		}
		lexicalResults = results
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if vectorErr != nil {
		if reqCtx, ok := observability.FromContext(ctx); ok {
			reqCtx.Warn("vector search failed, using lexical results only",
				slog.String("error", vectorErr.Error()))
		} else {
			slog.WarnContext(ctx, "vector search failed, using lexical results only",
				slog.String("error", vectorErr.Error()))
		}
		vectorResults = nil
	}

	return mergeCandidates(vectorResults, lexicalResults), nil
}

// mergeCandidates merges the two result lists by note UID. A note returned by
// both paths is represented once, carrying both scores, tagged BOTH.
func mergeCandidates(vectorResults []*store.NoteWithScore, lexicalResults []*store.LexicalResult) []*Candidate {
	merged := make(map[string]*Candidate, len(vectorResults)+len(lexicalResults))
	order := make([]string, 0, len(vectorResults)+len(lexicalResults))

	for _, v := range vectorResults {
		uid := v.Note.UID
		if _, ok := merged[uid]; ok {
			continue
		}
		merged[uid] = &Candidate{
			Note:       v.Note,
			Similarity: v.Score,
			Provenance: ProvenanceVectorOnly,
		}
		order = append(order, uid)
	}

	ranks := scaleLexicalRanks(lexicalResults)
	for _, l := range lexicalResults {
		uid := l.Note.UID
		rank := ranks[uid]
		if c, ok := merged[uid]; ok {
			if c.Provenance == ProvenanceVectorOnly {
				c.LexicalRank = rank
				c.Provenance = ProvenanceBoth
			}
			continue
		}
		merged[uid] = &Candidate{
			Note:        l.Note,
			LexicalRank: rank,
			Provenance:  ProvenanceLexicalOnly,
		}
		order = append(order, uid)
	}

	candidates := make([]*Candidate, 0, len(merged))
	for _, uid := range order {
		candidates = append(candidates, merged[uid])
	}
	return candidates
}

// scaleLexicalRanks maps raw lexical ranks into (0, 1] by dividing by the
// maximum rank, so lexical scores stay comparable to cosine similarities.
func scaleLexicalRanks(results []*store.LexicalResult) map[string]float32 {
	var maxRank float32
	for _, l := range results {
		if l.Rank > maxRank {
			maxRank = l.Rank
		}
	}

	scaled := make(map[string]float32, len(results))
	for _, l := range results {
		if maxRank > 0 {
			scaled[l.Note.UID] = l.Rank / maxRank
		} else {
			// Unranked driver: every match ties at 1.0.
			scaled[l.Note.UID] = 1.0
		}
	}
	return scaled
}
