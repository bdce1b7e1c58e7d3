package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docrankhq/docrank/internal/model"
	appErr "github.com/docrankhq/docrank/internal/pkg/errors"
	"github.com/docrankhq/docrank/internal/repo"
	"github.com/docrankhq/docrank/test/testutil"
)

func testProvenance(chatID, fileID, userID string, mtime int64) *model.ChatFileProvenance {
	return &model.ChatFileProvenance{
		ChatID: chatID,
		FileID: fileID,
		UserID: userID,
		ScoreMetadata: map[string]bool{
			"format is pdf": true,
		},
		QueryRelatedMetadata: []model.QueryProvenance{
			{
				FileQuery: "quarterly revenue",
				Metadata: model.ProvenanceMetadata{
					AverageChunkRelevance: 0.42,
					Score:                 0.42,
					ChunkIDs:              []string{"chunk-1", "chunk-2"},
					Summary:               "revenue tables",
				},
				SequenceNumber: 1,
			},
		},
		Mtime: mtime,
	}
}

func TestProvenanceRepoUpsertAndGet(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.ClearTables(t, conn, "chat_file_provenance")

	provenance := repo.NewProvenanceRepo(conn)
	ctx := context.Background()
	now := time.Now().UnixMilli()

	require.NoError(t, provenance.Upsert(ctx, testProvenance("chat-1", "file-1", "user-1", now)))

	fetched, err := provenance.Get(ctx, "chat-1", "file-1")
	require.NoError(t, err)
	require.Equal(t, "user-1", fetched.UserID)
	require.Equal(t, map[string]bool{"format is pdf": true}, fetched.ScoreMetadata)
	require.Len(t, fetched.QueryRelatedMetadata, 1)
	require.Equal(t, "quarterly revenue", fetched.QueryRelatedMetadata[0].FileQuery)
	require.Equal(t, []string{"chunk-1", "chunk-2"}, fetched.QueryRelatedMetadata[0].Metadata.ChunkIDs)

	_, err = provenance.Get(ctx, "chat-1", "missing")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestProvenanceRepoUpsertKeepsOwner(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.ClearTables(t, conn, "chat_file_provenance")

	provenance := repo.NewProvenanceRepo(conn)
	ctx := context.Background()
	now := time.Now().UnixMilli()

	require.NoError(t, provenance.Upsert(ctx, testProvenance("chat-1", "file-1", "user-1", now)))

	// A conflicting upsert refreshes the retrieval history but must not
	// reassign the record to another user.
	replay := testProvenance("chat-1", "file-1", "user-2", now+1)
	replay.QueryRelatedMetadata[0].SequenceNumber = 2
	require.NoError(t, provenance.Upsert(ctx, replay))

	fetched, err := provenance.Get(ctx, "chat-1", "file-1")
	require.NoError(t, err)
	require.Equal(t, "user-1", fetched.UserID)
	require.Equal(t, 2, fetched.QueryRelatedMetadata[0].SequenceNumber)
	require.Equal(t, now+1, fetched.Mtime)
}

func TestProvenanceRepoListByChatOrder(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.ClearTables(t, conn, "chat_file_provenance")

	provenance := repo.NewProvenanceRepo(conn)
	ctx := context.Background()
	base := time.Now().UnixMilli()

	require.NoError(t, provenance.Upsert(ctx, testProvenance("chat-1", "file-1", "user-1", base+1)))
	require.NoError(t, provenance.Upsert(ctx, testProvenance("chat-1", "file-2", "user-1", base+3)))
	require.NoError(t, provenance.Upsert(ctx, testProvenance("chat-1", "file-3", "user-1", base+2)))
	require.NoError(t, provenance.Upsert(ctx, testProvenance("chat-2", "file-1", "user-1", base+4)))

	records, err := provenance.ListByChat(ctx, "chat-1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, "file-2", records[0].FileID)
	require.Equal(t, "file-3", records[1].FileID)
	require.Equal(t, "file-1", records[2].FileID)
}
