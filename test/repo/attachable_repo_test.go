package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docrankhq/docrank/internal/model"
	"github.com/docrankhq/docrank/internal/repo"
	"github.com/docrankhq/docrank/test/testutil"
)

func TestAttachableRepoUpsertAndListByTokens(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.ClearTables(t, conn, "attachable_contents")

	attachables := repo.NewAttachableRepo(conn)
	ctx := context.Background()

	items := []*model.AttachableContent{
		{Token: "11111111-aaaa-bbbb-cccc-000000000001", FileID: "file-1", Type: model.AttachableTypeTable, Content: "| a | b |"},
		{Token: "11111111-aaaa-bbbb-cccc-000000000002", FileID: "file-1", Type: model.AttachableTypeList, Content: "- item"},
	}
	require.NoError(t, attachables.UpsertBatch(ctx, items))

	resolved, err := attachables.ListByTokens(ctx, []string{
		"11111111-aaaa-bbbb-cccc-000000000001",
		"11111111-aaaa-bbbb-cccc-000000000002",
		"11111111-aaaa-bbbb-cccc-00000000dead",
	})
	require.NoError(t, err)
	require.Len(t, resolved, 2)
	require.Equal(t, "| a | b |", resolved["11111111-aaaa-bbbb-cccc-000000000001"].Content)
	require.Equal(t, model.AttachableTypeList, resolved["11111111-aaaa-bbbb-cccc-000000000002"].Type)
	_, ok := resolved["11111111-aaaa-bbbb-cccc-00000000dead"]
	require.False(t, ok)
}

func TestAttachableRepoUpsertReplacesContent(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.ClearTables(t, conn, "attachable_contents")

	attachables := repo.NewAttachableRepo(conn)
	ctx := context.Background()
	token := "11111111-aaaa-bbbb-cccc-000000000001"

	require.NoError(t, attachables.UpsertBatch(ctx, []*model.AttachableContent{
		{Token: token, FileID: "file-1", Type: model.AttachableTypeTable, Content: "| old |"},
	}))
	require.NoError(t, attachables.UpsertBatch(ctx, []*model.AttachableContent{
		{Token: token, FileID: "file-1", Type: model.AttachableTypeTable, Content: "| new |"},
	}))

	resolved, err := attachables.ListByTokens(ctx, []string{token})
	require.NoError(t, err)
	require.Equal(t, "| new |", resolved[token].Content)
}
