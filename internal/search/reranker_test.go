package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docrankhq/docrank/internal/model"
)

func candidate(id, content string, score float64) model.RankedChunk {
	return model.RankedChunk{
		Chunk: model.Chunk{ID: id, Content: content},
		Score: score,
	}
}

func TestReranker_ReordersByScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rerank", r.URL.Path)
		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "brake assembly", req.Query)
		require.Len(t, req.Documents, 3)
		json.NewEncoder(w).Encode(rerankResponse{Results: []struct {
			Index int     `json:"index"`
			Score float64 `json:"score"`
		}{
			{Index: 2, Score: 0.95},
			{Index: 0, Score: 0.4},
			{Index: 1, Score: 0.1},
		}})
	}))
	defer srv.Close()

	chunks := []model.RankedChunk{
		candidate("c1", "front wheel", 0.8),
		candidate("c2", "saddle height", 0.7),
		candidate("c3", "brake assembly torque", 0.6),
	}
	r := NewReranker(srv.URL, time.Second)
	out := r.Rerank(context.Background(), "brake assembly", chunks)
	require.Len(t, out, 3)
	require.Equal(t, "c3", out[0].ID)
	require.Equal(t, 0.95, out[0].Score)
	require.Equal(t, "c1", out[1].ID)
	require.Equal(t, "c2", out[2].ID)
}

func TestReranker_FallsBackOnHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	chunks := []model.RankedChunk{
		candidate("c1", "one", 0.8),
		candidate("c2", "two", 0.7),
	}
	r := NewReranker(srv.URL, time.Second)
	out := r.Rerank(context.Background(), "q", chunks)
	require.Equal(t, chunks, out)
}

func TestReranker_FallsBackOnBadIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(rerankResponse{Results: []struct {
			Index int     `json:"index"`
			Score float64 `json:"score"`
		}{
			{Index: 7, Score: 0.9},
		}})
	}))
	defer srv.Close()

	chunks := []model.RankedChunk{candidate("c1", "one", 0.8)}
	r := NewReranker(srv.URL, time.Second)
	out := r.Rerank(context.Background(), "q", chunks)
	require.Equal(t, chunks, out)
}

func TestReranker_Disabled(t *testing.T) {
	r := NewReranker("", 0)
	require.False(t, r.Enabled())
	chunks := []model.RankedChunk{candidate("c1", "one", 0.8)}
	require.Equal(t, chunks, r.Rerank(context.Background(), "q", chunks))
}
