package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docrankhq/docrank/internal/model"
)

// Reranker reorders a candidate chunk list through an external cross-encoder
// service. Availability wins over precision: any failure falls back to the
// original ordering.
type Reranker struct {
	endpoint string
	client   *http.Client
}

func NewReranker(endpoint string, timeout time.Duration) *Reranker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Reranker{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether a reranking endpoint is configured at all.
func (r *Reranker) Enabled() bool {
	return r != nil && r.endpoint != ""
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Results []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	} `json:"results"`
}

// Rerank returns the chunks reordered by cross-encoder score. The chunk
// payloads are preserved, only the order and scores change.
func (r *Reranker) Rerank(ctx context.Context, query string, chunks []model.RankedChunk) []model.RankedChunk {
	if !r.Enabled() || len(chunks) == 0 {
		return chunks
	}
	logger := logutil.GetLogger(ctx).With(zap.Int("candidates", len(chunks)))
	reordered, err := r.rerank(ctx, query, chunks)
	if err != nil {
		logger.Warn("rerank failed, keeping original order", zap.Error(err))
		return chunks
	}
	return reordered
}

func (r *Reranker) rerank(ctx context.Context, query string, chunks []model.RankedChunk) ([]model.RankedChunk, error) {
	docs := make([]string, 0, len(chunks))
	for _, c := range chunks {
		docs = append(docs, c.Content)
	}
	body, err := json.Marshal(rerankRequest{Query: query, Documents: docs})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank request failed: %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}
	var out rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Results) == 0 {
		return nil, fmt.Errorf("rerank response has no results")
	}
	reordered := make([]model.RankedChunk, 0, len(out.Results))
	for _, item := range out.Results {
		if item.Index < 0 || item.Index >= len(chunks) {
			return nil, fmt.Errorf("rerank result index %d out of range", item.Index)
		}
		chunk := chunks[item.Index]
		chunk.Score = item.Score
		reordered = append(reordered, chunk)
	}
	return reordered, nil
}
