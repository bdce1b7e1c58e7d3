package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/didi/gendry/builder"

	"github.com/docrankhq/docrank/internal/model"
	"github.com/docrankhq/docrank/internal/pkg/dbutil"
	appErr "github.com/docrankhq/docrank/internal/pkg/errors"
)

type RuleRepo struct {
	db *sql.DB
}

func NewRuleRepo(db *sql.DB) *RuleRepo {
	return &RuleRepo{db: db}
}

var ruleColumns = []string{"id", "user_id", "name", "type", "weight", "predicates", "question", "active", "ctime", "mtime"}

func (r *RuleRepo) Create(ctx context.Context, rule *model.Rule) error {
	predicates, err := json.Marshal(rule.Predicates)
	if err != nil {
		return fmt.Errorf("encode rule predicates: %w", err)
	}
	data := map[string]interface{}{
		"id":         rule.ID,
		"user_id":    rule.UserID,
		"name":       rule.Name,
		"type":       rule.Type,
		"weight":     rule.Weight,
		"predicates": predicates,
		"question":   rule.Question,
		"active":     rule.Active,
		"ctime":      rule.Ctime,
		"mtime":      rule.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("rules", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *RuleRepo) Update(ctx context.Context, rule *model.Rule) error {
	predicates, err := json.Marshal(rule.Predicates)
	if err != nil {
		return fmt.Errorf("encode rule predicates: %w", err)
	}
	where := map[string]interface{}{
		"id":      rule.ID,
		"user_id": rule.UserID,
	}
	update := map[string]interface{}{
		"name":       rule.Name,
		"weight":     rule.Weight,
		"predicates": predicates,
		"question":   rule.Question,
		"active":     rule.Active,
		"mtime":      rule.Mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("rules", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *RuleRepo) Delete(ctx context.Context, userID, ruleID string) error {
	where := map[string]interface{}{
		"id":      ruleID,
		"user_id": userID,
	}
	sqlStr, args, err := builder.BuildDelete("rules", where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *RuleRepo) Get(ctx context.Context, userID, ruleID string) (*model.Rule, error) {
	where := map[string]interface{}{
		"id":      ruleID,
		"user_id": userID,
	}
	sqlStr, args, err := builder.BuildSelect("rules", where, ruleColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	rule, err := scanRule(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return rule, nil
}

// ListActive returns the user's active rules, optionally filtered by type.
func (r *RuleRepo) ListActive(ctx context.Context, userID, ruleType string) ([]model.Rule, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"active":   true,
		"_orderby": "ctime asc",
	}
	if ruleType != "" {
		where["type"] = ruleType
	}
	sqlStr, args, err := builder.BuildSelect("rules", where, ruleColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var rules []model.Rule
	for rows.Next() {
		rule, err := scanRule(rows.Scan)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

func (r *RuleRepo) ListByUser(ctx context.Context, userID string) ([]model.Rule, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"_orderby": "ctime asc",
	}
	sqlStr, args, err := builder.BuildSelect("rules", where, ruleColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var rules []model.Rule
	for rows.Next() {
		rule, err := scanRule(rows.Scan)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

func scanRule(scan func(dest ...interface{}) error) (*model.Rule, error) {
	var rule model.Rule
	var predicates []byte
	if err := scan(&rule.ID, &rule.UserID, &rule.Name, &rule.Type, &rule.Weight,
		&predicates, &rule.Question, &rule.Active, &rule.Ctime, &rule.Mtime); err != nil {
		return nil, err
	}
	if len(predicates) > 0 {
		if err := json.Unmarshal(predicates, &rule.Predicates); err != nil {
			return nil, fmt.Errorf("decode rule predicates: %w", err)
		}
	}
	return &rule, nil
}
