package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docrankhq/docrank/internal/model"
	"github.com/docrankhq/docrank/internal/repo"
	"github.com/docrankhq/docrank/test/testutil"
)

func testChunk(id, fileID string, index int, embedding []float32) *model.Chunk {
	return &model.Chunk{
		ID:         id,
		FileID:     fileID,
		ChunkIndex: index,
		Content:    "content of " + id,
		Tokens:     10,
		Embedding:  embedding,
	}
}

func TestChunkRepoUpsertAndNearestNeighbors(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.ClearTables(t, conn, "chunks")

	chunks := repo.NewChunkRepo(conn)
	ctx := context.Background()

	parent := testChunk("parent-1", "file-a", 0, []float32{1, 0, 0})
	parent.LayerNumber = 1
	require.NoError(t, chunks.UpsertBatch(ctx, []*model.Chunk{
		testChunk("chunk-a1", "file-a", 0, []float32{1, 0, 0}),
		testChunk("chunk-a2", "file-a", 1, []float32{0, 1, 0}),
		testChunk("chunk-b1", "file-b", 0, []float32{0.9, 0.1, 0}),
		parent,
	}))

	// Query along the first axis: a1 is a perfect match, b1 close, a2
	// orthogonal. The layer-1 parent must never surface.
	results, err := chunks.NearestNeighbors(ctx, []float32{1, 0, 0}, nil, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, "chunk-a1", results[0].ID)
	require.Equal(t, "chunk-b1", results[1].ID)
	require.Equal(t, "chunk-a2", results[2].ID)
	require.InDelta(t, 1.0, results[0].Score, 1e-6)
	require.Greater(t, results[1].Score, results[2].Score)

	// Candidate restriction drops file-b.
	results, err = chunks.NearestNeighbors(ctx, []float32{1, 0, 0}, []string{"file-a"}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, rc := range results {
		require.Equal(t, "file-a", rc.FileID)
	}

	results, err = chunks.NearestNeighbors(ctx, []float32{1, 0, 0}, nil, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestChunkRepoUpsertIsIdempotent(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.ClearTables(t, conn, "chunks")

	chunks := repo.NewChunkRepo(conn)
	ctx := context.Background()

	chunk := testChunk("chunk-1", "file-a", 0, []float32{1, 0, 0})
	require.NoError(t, chunks.UpsertBatch(ctx, []*model.Chunk{chunk}))

	chunk.Content = "reingested content"
	chunk.Tokens = 42
	require.NoError(t, chunks.UpsertBatch(ctx, []*model.Chunk{chunk}))

	fetched, err := chunks.ListByIDs(ctx, []string{"chunk-1"})
	require.NoError(t, err)
	require.Len(t, fetched, 1)
	require.Equal(t, "reingested content", fetched[0].Content)
	require.Equal(t, 42, fetched[0].Tokens)
}

func TestChunkRepoBackfillChildren(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.ClearTables(t, conn, "chunks")

	chunks := repo.NewChunkRepo(conn)
	ctx := context.Background()

	parent := testChunk("parent-1", "file-a", 0, []float32{1, 0, 0})
	parent.LayerNumber = 1
	require.NoError(t, chunks.UpsertBatch(ctx, []*model.Chunk{
		parent,
		testChunk("leaf-1", "file-a", 0, []float32{0, 1, 0}),
		testChunk("leaf-2", "file-a", 1, []float32{0, 0, 1}),
	}))

	require.NoError(t, chunks.BackfillChildren(ctx, "file-a", map[string][]string{
		"parent-1": {"leaf-1", "leaf-2"},
	}))

	fetched, err := chunks.ListByIDs(ctx, []string{"parent-1"})
	require.NoError(t, err)
	require.Len(t, fetched, 1)
	require.Equal(t, []string{"leaf-1", "leaf-2"}, fetched[0].Children)

	// A file mismatch must not touch the row.
	require.NoError(t, chunks.BackfillChildren(ctx, "file-other", map[string][]string{
		"parent-1": {"leaf-9"},
	}))
	fetched, err = chunks.ListByIDs(ctx, []string{"parent-1"})
	require.NoError(t, err)
	require.Equal(t, []string{"leaf-1", "leaf-2"}, fetched[0].Children)
}
