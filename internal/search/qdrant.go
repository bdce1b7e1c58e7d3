package search

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/docrankhq/docrank/internal/ai"
	"github.com/docrankhq/docrank/internal/config"
	"github.com/docrankhq/docrank/internal/model"
)

// ChunkResolver hydrates chunk payloads for ids returned by the managed
// search service.
type ChunkResolver interface {
	ListByIDs(ctx context.Context, ids []string) ([]model.Chunk, error)
}

// QdrantSearcher treats qdrant as the managed multi-vector backend: the
// service owns scoring and ordering, we only hydrate the winning chunk rows
// from the chunk store.
type QdrantSearcher struct {
	client     *qdrant.Client
	collection string
	embedder   ai.IEmbedder
	resolver   ChunkResolver
}

func NewQdrantSearcher(cfg config.QdrantConfig, embedder ai.IEmbedder, resolver ChunkResolver) (*QdrantSearcher, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	return &QdrantSearcher{
		client:     client,
		collection: cfg.Collection,
		embedder:   embedder,
		resolver:   resolver,
	}, nil
}

func (s *QdrantSearcher) Search(ctx context.Context, query string, fileIDs []string, limit int) ([]model.RankedChunk, error) {
	if limit <= 0 {
		return nil, nil
	}
	embedding, err := s.embedder.Embed(ctx, query, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var filter *qdrant.Filter
	if len(fileIDs) > 0 {
		conditions := make([]*qdrant.Condition, 0, len(fileIDs))
		for _, id := range fileIDs {
			conditions = append(conditions, qdrant.NewMatch("file_id", id))
		}
		filter = &qdrant.Filter{Should: conditions}
	}

	max := uint64(limit)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          &max,
		Filter:         filter,
		WithPayload:    qdrant.NewWithPayload(false),
	})
	if err != nil {
		return nil, fmt.Errorf("query qdrant: %w", err)
	}

	ids := make([]string, 0, len(points))
	scores := make(map[string]float64, len(points))
	for _, point := range points {
		if point.Id == nil {
			continue
		}
		id := point.Id.GetUuid()
		if id == "" {
			continue
		}
		ids = append(ids, id)
		scores[id] = float64(point.Score)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	chunks, err := s.resolver.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate chunks: %w", err)
	}
	byID := make(map[string]model.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}

	// Preserve the service's ranking, drop ids unknown to the chunk store.
	results := make([]model.RankedChunk, 0, len(ids))
	for _, id := range ids {
		chunk, ok := byID[id]
		if !ok {
			continue
		}
		results = append(results, model.RankedChunk{Chunk: chunk, Score: scores[id]})
	}
	return results, nil
}
