package retrieval

import (
	"context"
	"log/slog"
	"time"

	"github.com/hrygo/echonote/internal/observability"
	"github.com/hrygo/echonote/plugin/ai"
)

const (
	// DefaultSimilarityThreshold filters vector matches. Kept permissive so
	// the ranker, not the store, decides the final ordering.
	DefaultSimilarityThreshold = 0.3

	defaultCandidateLimit = 20
)

// Options tune one BuildContext call. Zero values take the defaults.
type Options struct {
	MaxNotes            int
	MaxTotalChars       int
	SimilarityThreshold float32
	Weights             Weights
}

func (o *Options) normalize() {
	if o.MaxNotes == 0 {
		o.MaxNotes = DefaultMaxNotes
	}
	if o.MaxTotalChars == 0 {
		o.MaxTotalChars = DefaultMaxTotalChars
	}
	if o.SimilarityThreshold == 0 {
		o.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if o.Weights == (Weights{}) {
		o.Weights = DefaultWeights()
	}
}

// Builder runs the full pipeline: embed the query, retrieve candidates over
// both paths, rank them, and pack the winners into a context bundle.
type Builder struct {
	embedder  ai.EmbeddingService
	retriever *Retriever
	limiter   *ai.KeyedLimiter

	// now is replaceable for tests.
	now func() time.Time
}

// NewBuilder creates a Builder. embedder may be nil, in which case every
// query runs lexical-only.
func NewBuilder(embedder ai.EmbeddingService, retriever *Retriever, limiter *ai.KeyedLimiter) *Builder {
	return &Builder{
		embedder:  embedder,
		retriever: retriever,
		limiter:   limiter,
		now:       time.Now,
	}
}

// BuildContext assembles the context bundle for one user query.
//
// Embedding trouble, including rate limiting, degrades the call to
// lexical-only retrieval; it never fails the query. Invalid input and
// lexical retrieval failures are returned as errors.
func (b *Builder) BuildContext(ctx context.Context, userID int32, query string, opts Options) (*ContextBundle, error) {
	if err := ai.ValidateInput(query); err != nil {
		return nil, err
	}
	opts.normalize()

	reqCtx, ok := observability.FromContext(ctx)
	if !ok {
		reqCtx = observability.NewRequestContext(nil, userID)
		ctx = observability.WithRequestContext(ctx, reqCtx)
	}
	reqCtx.Debug("building context",
		slog.Int(observability.LogFieldQueryLen, len([]rune(query))))

	vector, degraded := b.embedQuery(ctx, reqCtx, userID, query)

	candidates, err := b.retriever.Retrieve(ctx, &RetrieveOptions{
		UserID:              userID,
		Query:               query,
		QueryVector:         vector,
		Limit:               defaultCandidateLimit,
		SimilarityThreshold: opts.SimilarityThreshold,
	})
	if err != nil {
		return nil, err
	}

	ranked := Rank(candidates, opts.Weights, b.now())

	bundle, err := Pack(ranked, PackOptions{
		MaxNotes:      opts.MaxNotes,
		MaxTotalChars: opts.MaxTotalChars,
	})
	if err != nil {
		return nil, err
	}
	bundle.Degraded = degraded

	reqCtx.Info("context built",
		slog.String(observability.LogFieldStrategy, strategyLabel(vector != nil)),
		slog.Int(observability.LogFieldResultCount, len(bundle.Excerpts)),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
	return bundle, nil
}

// embedQuery returns the query vector, or nil plus degraded=true when the
// builder must fall back to lexical-only retrieval. A nil embedder is the
// configured-off case, not a degradation.
func (b *Builder) embedQuery(ctx context.Context, reqCtx *observability.RequestContext, userID int32, query string) ([]float32, bool) {
	if b.embedder == nil {
		return nil, false
	}
	if b.limiter != nil && !b.limiter.AllowUser(userID) {
		reqCtx.Warn("embedding rate limit reached, using lexical search only")
		return nil, true
	}
	vector, err := b.embedder.Embed(ctx, query)
	if err != nil {
		reqCtx.Warn("query embedding failed, using lexical search only",
			slog.String("error", err.Error()))
		return nil, true
	}
	return vector, false
}

func strategyLabel(hybrid bool) string {
	if hybrid {
		return "hybrid"
	}
	return "lexical"
}
