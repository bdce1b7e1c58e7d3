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

func testBasicRule(id, userID string) *model.Rule {
	now := time.Now().UnixMilli()
	return &model.Rule{
		ID:     id,
		UserID: userID,
		Name:   "pdf only",
		Type:   model.RuleTypeBasic,
		Weight: 1,
		Predicates: []model.Predicate{
			{Attribute: "fileType", Comparator: model.ComparatorEq, Value: "pdf"},
		},
		Active: true,
		Ctime:  now,
		Mtime:  now,
	}
}

func TestRuleRepoCreateAndGet(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.ClearTables(t, conn, "rules")

	rules := repo.NewRuleRepo(conn)
	ctx := context.Background()

	rule := testBasicRule("rule-1", "user-1")
	require.NoError(t, rules.Create(ctx, rule))
	require.ErrorIs(t, rules.Create(ctx, rule), appErr.ErrConflict)

	fetched, err := rules.Get(ctx, "user-1", "rule-1")
	require.NoError(t, err)
	require.Equal(t, "pdf only", fetched.Name)
	require.Equal(t, rule.Predicates, fetched.Predicates)

	// Ownership is part of the key: another user cannot see the rule.
	_, err = rules.Get(ctx, "user-2", "rule-1")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestRuleRepoUpdate(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.ClearTables(t, conn, "rules")

	rules := repo.NewRuleRepo(conn)
	ctx := context.Background()

	rule := testBasicRule("rule-1", "user-1")
	require.NoError(t, rules.Create(ctx, rule))

	rule.Name = "large pdf only"
	rule.Predicates = append(rule.Predicates, model.Predicate{
		Attribute: "numPages", Comparator: model.ComparatorGte, Value: float64(10),
	})
	rule.Active = false
	rule.Mtime = rule.Mtime + 1
	require.NoError(t, rules.Update(ctx, rule))

	fetched, err := rules.Get(ctx, "user-1", "rule-1")
	require.NoError(t, err)
	require.Equal(t, "large pdf only", fetched.Name)
	require.Len(t, fetched.Predicates, 2)
	require.False(t, fetched.Active)

	missing := testBasicRule("rule-404", "user-1")
	require.ErrorIs(t, rules.Update(ctx, missing), appErr.ErrNotFound)
}

func TestRuleRepoDelete(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.ClearTables(t, conn, "rules")

	rules := repo.NewRuleRepo(conn)
	ctx := context.Background()

	require.NoError(t, rules.Create(ctx, testBasicRule("rule-1", "user-1")))
	require.NoError(t, rules.Delete(ctx, "user-1", "rule-1"))
	require.ErrorIs(t, rules.Delete(ctx, "user-1", "rule-1"), appErr.ErrNotFound)
}

func TestRuleRepoListActiveFiltersTypeAndState(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	testutil.ClearTables(t, conn, "rules")

	rules := repo.NewRuleRepo(conn)
	ctx := context.Background()

	basic := testBasicRule("rule-1", "user-1")
	require.NoError(t, rules.Create(ctx, basic))

	inactive := testBasicRule("rule-2", "user-1")
	inactive.Active = false
	require.NoError(t, rules.Create(ctx, inactive))

	advanced := testBasicRule("rule-3", "user-1")
	advanced.Type = model.RuleTypeAdvanced
	advanced.Predicates = nil
	advanced.Question = "Does the document mention pricing?"
	require.NoError(t, rules.Create(ctx, advanced))

	require.NoError(t, rules.Create(ctx, testBasicRule("rule-4", "user-2")))

	active, err := rules.ListActive(ctx, "user-1", model.RuleTypeBasic)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "rule-1", active[0].ID)

	advancedActive, err := rules.ListActive(ctx, "user-1", model.RuleTypeAdvanced)
	require.NoError(t, err)
	require.Len(t, advancedActive, 1)
	require.Equal(t, "Does the document mention pricing?", advancedActive[0].Question)

	all, err := rules.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, all, 3)
}
