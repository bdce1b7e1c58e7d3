package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docrankhq/docrank/internal/model"
	appErr "github.com/docrankhq/docrank/internal/pkg/errors"
	"github.com/docrankhq/docrank/internal/repo"
)

var validComparators = map[string]bool{
	model.ComparatorEq:            true,
	model.ComparatorNe:            true,
	model.ComparatorGt:            true,
	model.ComparatorGte:           true,
	model.ComparatorLt:            true,
	model.ComparatorLte:           true,
	model.ComparatorContain:       true,
	model.ComparatorNotContain:    true,
	model.ComparatorLike:          true,
	model.ComparatorRegexMatch:    true,
	model.ComparatorNotRegexMatch: true,
	model.ComparatorIn:            true,
	model.ComparatorNin:           true,
}

// RuleService owns the authoring lifecycle of relevance rules.
type RuleService struct {
	rules *repo.RuleRepo
}

func NewRuleService(rules *repo.RuleRepo) *RuleService {
	return &RuleService{rules: rules}
}

func (s *RuleService) Create(ctx context.Context, userID string, rule *model.Rule) error {
	logger := logutil.GetLogger(ctx).With(zap.String("user_id", userID), zap.String("rule_name", rule.Name))
	if err := validateRule(rule); err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	rule.ID = newID()
	rule.UserID = userID
	rule.Ctime = now
	rule.Mtime = now
	if err := s.rules.Create(ctx, rule); err != nil {
		logger.Error("failed to create rule", zap.Error(err))
		return err
	}
	logger.Info("rule created", zap.String("rule_id", rule.ID))
	return nil
}

func (s *RuleService) List(ctx context.Context, userID string) ([]model.Rule, error) {
	return s.rules.ListByUser(ctx, userID)
}

func (s *RuleService) ListActive(ctx context.Context, userID, ruleType string) ([]model.Rule, error) {
	return s.rules.ListActive(ctx, userID, ruleType)
}

func (s *RuleService) Get(ctx context.Context, userID, ruleID string) (*model.Rule, error) {
	return s.rules.Get(ctx, userID, ruleID)
}

func (s *RuleService) Update(ctx context.Context, userID string, rule *model.Rule) error {
	logger := logutil.GetLogger(ctx).With(zap.String("user_id", userID), zap.String("rule_id", rule.ID))
	if rule.ID == "" {
		return appErr.ErrInvalid
	}
	if err := validateRule(rule); err != nil {
		return err
	}
	rule.UserID = userID
	rule.Mtime = time.Now().UnixMilli()
	if err := s.rules.Update(ctx, rule); err != nil {
		if !appErr.IsNotFound(err) {
			logger.Error("failed to update rule", zap.Error(err))
		}
		return err
	}
	return nil
}

func (s *RuleService) Delete(ctx context.Context, userID, ruleID string) error {
	if ruleID == "" {
		return appErr.ErrInvalid
	}
	return s.rules.Delete(ctx, userID, ruleID)
}

func validateRule(rule *model.Rule) error {
	rule.Name = strings.TrimSpace(rule.Name)
	if rule.Name == "" {
		return fmt.Errorf("%w: rule name is required", appErr.ErrInvalid)
	}
	if rule.Weight <= 0 {
		return fmt.Errorf("%w: rule weight must be positive", appErr.ErrInvalid)
	}
	switch rule.Type {
	case model.RuleTypeBasic:
		if len(rule.Predicates) == 0 {
			return fmt.Errorf("%w: basic rule needs at least one predicate", appErr.ErrInvalid)
		}
		for _, p := range rule.Predicates {
			if strings.TrimSpace(p.Attribute) == "" {
				return fmt.Errorf("%w: predicate attribute is required", appErr.ErrInvalid)
			}
			if !validComparators[p.Comparator] {
				return fmt.Errorf("%w: unknown comparator %q", appErr.ErrInvalid, p.Comparator)
			}
		}
	case model.RuleTypeAdvanced:
		if strings.TrimSpace(rule.Question) == "" {
			return fmt.Errorf("%w: advanced rule needs a question", appErr.ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: rule type must be basic or advanced", appErr.ErrInvalid)
	}
	return nil
}
