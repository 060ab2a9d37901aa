package retrieval

import (
	"sort"
	"time"
)

const (
	// DefaultVectorWeight favors semantic similarity as the primary signal.
	DefaultVectorWeight = 0.6
	// DefaultLexicalWeight rewards exact keyword matches.
	DefaultLexicalWeight = 0.3
	// DefaultRecencyWeight nudges fresher notes upward.
	DefaultRecencyWeight = 0.1

	// recencyHalfScaleDays controls how fast the recency boost decays. A note
	// this many days old scores half the boost of a brand-new one.
	recencyHalfScaleDays = 30.0
)

// Weights are the blend coefficients for the composite score.
type Weights struct {
	Vector  float64
	Lexical float64
	Recency float64
}

// DefaultWeights returns the standard 0.6 / 0.3 / 0.1 blend.
func DefaultWeights() Weights {
	return Weights{
		Vector:  DefaultVectorWeight,
		Lexical: DefaultLexicalWeight,
		Recency: DefaultRecencyWeight,
	}
}

// RankedCandidate is a candidate with its composite score.
type RankedCandidate struct {
	*Candidate
	Score float64
}

// Rank orders candidates by composite score, highest first. It is a pure
// function of its inputs: no I/O, no clock reads, so the same inputs always
// produce the same ordering.
//
// Ties break toward dual-path hits, then newer notes, then smaller IDs.
func Rank(candidates []*Candidate, weights Weights, now time.Time) []*RankedCandidate {
	ranked := make([]*RankedCandidate, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, &RankedCandidate{
			Candidate: c,
			Score:     compositeScore(c, weights, now),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		aBoth := a.Provenance == ProvenanceBoth
		bBoth := b.Provenance == ProvenanceBoth
		if aBoth != bBoth {
			return aBoth
		}
		if a.Note.UpdatedTs != b.Note.UpdatedTs {
			return a.Note.UpdatedTs > b.Note.UpdatedTs
		}
		return a.Note.UID < b.Note.UID
	})
	return ranked
}

// compositeScore blends the normalized signals. A score absent from a
// candidate's retrieval path contributes zero rather than being imputed.
func compositeScore(c *Candidate, weights Weights, now time.Time) float64 {
	var vec, lex float64
	switch c.Provenance {
	case ProvenanceVectorOnly:
		vec = clamp01(float64(c.Similarity))
	case ProvenanceLexicalOnly:
		lex = clamp01(float64(c.LexicalRank))
	case ProvenanceBoth:
		vec = clamp01(float64(c.Similarity))
		lex = clamp01(float64(c.LexicalRank))
	}
	return weights.Vector*vec + weights.Lexical*lex + weights.Recency*recencyBoost(c.Note.UpdatedTs, now)
}

// recencyBoost is 1/(1 + ageDays/30), clipped to [0, 1]. Notes with an
// updated_ts in the future clip to 1.
func recencyBoost(updatedTs int64, now time.Time) float64 {
	ageDays := now.Sub(time.Unix(updatedTs, 0)).Hours() / 24
	if ageDays < 0 {
		return 1
	}
	return clamp01(1 / (1 + ageDays/recencyHalfScaleDays))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
