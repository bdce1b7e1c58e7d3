package search

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docrankhq/docrank/internal/ai"
	"github.com/docrankhq/docrank/internal/model"
)

type Backend string

const (
	// BackendLocal embeds the query through the configured embedding
	// provider and runs the nearest-neighbor lookup in postgres.
	BackendLocal Backend = "local"
	// BackendQdrant delegates the query to the managed multi-vector search
	// service. Results come back pre-scored and pre-ranked.
	BackendQdrant Backend = "qdrant"
	// BackendOpenAI mirrors the local path with the OpenAI embedder. Kept
	// for completeness, disabled unless explicitly enabled in config.
	BackendOpenAI Backend = "openai"
)

// NNIndex is the nearest-neighbor lookup behind the dense backends.
type NNIndex interface {
	NearestNeighbors(ctx context.Context, embedding []float32, fileIDs []string, limit int) ([]model.RankedChunk, error)
}

// ManagedSearcher is the pre-ranked external search service.
type ManagedSearcher interface {
	Search(ctx context.Context, query string, fileIDs []string, limit int) ([]model.RankedChunk, error)
}

type Gateway struct {
	embedder       ai.IEmbedder
	openaiEmbedder ai.IEmbedder
	index          NNIndex
	managed        ManagedSearcher
}

func NewGateway(embedder ai.IEmbedder, openaiEmbedder ai.IEmbedder, index NNIndex, managed ManagedSearcher) *Gateway {
	return &Gateway{
		embedder:       embedder,
		openaiEmbedder: openaiEmbedder,
		index:          index,
		managed:        managed,
	}
}

// PreRanked reports whether the backend's results already went through a
// precise ranker, making the reranking pass redundant.
func (g *Gateway) PreRanked(backend Backend) bool {
	return backend == BackendQdrant
}

// Search returns up to limit chunks ranked by relevance to the query,
// restricted to fileIDs when non-empty. Upstream failures degrade to an
// empty result: zero candidates is a valid terminal state, not an error.
func (g *Gateway) Search(ctx context.Context, query string, fileIDs []string, limit int, backend Backend) []model.RankedChunk {
	logger := logutil.GetLogger(ctx).With(zap.String("backend", string(backend)), zap.Int("limit", limit))
	switch backend {
	case BackendQdrant:
		if g.managed == nil {
			logger.Warn("managed search backend not configured")
			return nil
		}
		chunks, err := g.managed.Search(ctx, query, fileIDs, limit)
		if err != nil {
			logger.Warn("managed search failed", zap.Error(err))
			return nil
		}
		return chunks
	case BackendOpenAI:
		if g.openaiEmbedder == nil {
			logger.Warn("openai search backend disabled")
			return nil
		}
		return g.denseSearch(ctx, g.openaiEmbedder, query, fileIDs, limit)
	default:
		if g.embedder == nil {
			logger.Warn("local search backend not configured")
			return nil
		}
		return g.denseSearch(ctx, g.embedder, query, fileIDs, limit)
	}
}

func (g *Gateway) denseSearch(ctx context.Context, embedder ai.IEmbedder, query string, fileIDs []string, limit int) []model.RankedChunk {
	logger := logutil.GetLogger(ctx)
	embedding, err := embedder.Embed(ctx, query, "RETRIEVAL_QUERY")
	if err != nil {
		logger.Warn("failed to embed search query", zap.Error(err))
		return nil
	}
	chunks, err := g.index.NearestNeighbors(ctx, embedding, fileIDs, limit)
	if err != nil {
		logger.Warn("nearest-neighbor lookup failed", zap.Error(err))
		return nil
	}
	return chunks
}
