package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docrankhq/docrank/internal/model"
	"github.com/docrankhq/docrank/internal/search"
)

type fakeSearcher struct {
	mu      sync.Mutex
	chunks  []model.RankedChunk
	queries []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string, fileIDs []string, limit int, backend search.Backend) []model.RankedChunk {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	var out []model.RankedChunk
	allowed := make(map[string]bool, len(fileIDs))
	for _, id := range fileIDs {
		allowed[id] = true
	}
	for _, c := range f.chunks {
		if len(allowed) == 0 || allowed[c.FileID] {
			out = append(out, c)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (f *fakeSearcher) PreRanked(backend search.Backend) bool {
	return backend == search.BackendQdrant
}

// fakeJudge answers by matching the rule question embedded in the prompt.
type fakeJudge struct {
	responses map[string]string
}

func (f *fakeJudge) Generate(ctx context.Context, prompt string) (string, error) {
	for question, answer := range f.responses {
		if strings.Contains(prompt, question) {
			if answer == "" {
				return "", fmt.Errorf("judge backend exploded")
			}
			return answer, nil
		}
	}
	return "", fmt.Errorf("no canned answer for prompt")
}

func advancedRule(name, question string, weight float64) model.Rule {
	return model.Rule{Name: name, Type: model.RuleTypeAdvanced, Weight: weight, Question: question, Active: true}
}

func TestAdvancedRuleEvaluator_FailureIsolation(t *testing.T) {
	searcher := &fakeSearcher{chunks: []model.RankedChunk{
		rankedChunk("c1", "f1", 0.9),
		rankedChunk("c2", "f1", 0.7),
	}}
	judge := &fakeJudge{responses: map[string]string{
		"Is this a safety manual?":   `{"score": true, "explanation": "covers safety procedures"}`,
		"Does it mention the motor?": `{"score": true, "explanation": "rear motor specs listed"}`,
		"Is it written in Mandarin?": "",
	}}
	evaluator := NewAdvancedRuleEvaluator(searcher, judge, nil)
	rules := []model.Rule{
		advancedRule("safety", "Is this a safety manual?", 0.6),
		advancedRule("motor", "Does it mention the motor?", 0.4),
		advancedRule("mandarin", "Is it written in Mandarin?", 0.9),
	}

	outcomes := evaluator.Evaluate(context.Background(), rules, []string{"f1"}, search.BackendLocal)
	require.Contains(t, outcomes, "f1")
	outcome := outcomes["f1"]

	// The failing rule contributes nothing; the other two survive intact.
	require.Len(t, outcome.Info, 2)
	require.True(t, outcome.Info["safety"].Score)
	require.True(t, outcome.Info["motor"].Score)
	require.NotContains(t, outcome.Info, "mandarin")
	require.InDelta(t, (0.6+0.4)/2, outcome.Score, 1e-9)
}

func TestAdvancedRuleEvaluator_NoVerdictForNoChunks(t *testing.T) {
	searcher := &fakeSearcher{}
	judge := &fakeJudge{responses: map[string]string{}}
	evaluator := NewAdvancedRuleEvaluator(searcher, judge, nil)
	outcomes := evaluator.Evaluate(context.Background(),
		[]model.Rule{advancedRule("any", "anything?", 1)}, []string{"f1"}, search.BackendLocal)
	require.Empty(t, outcomes)
}

func TestAdvancedRuleEvaluator_NoVerdictCountsAgainstScore(t *testing.T) {
	searcher := &fakeSearcher{chunks: []model.RankedChunk{rankedChunk("c1", "f1", 0.9)}}
	judge := &fakeJudge{responses: map[string]string{
		"yes?": `{"score": true}`,
		"no?":  `{"score": false, "explanation": "not supported"}`,
	}}
	evaluator := NewAdvancedRuleEvaluator(searcher, judge, nil)
	outcomes := evaluator.Evaluate(context.Background(), []model.Rule{
		advancedRule("r-yes", "yes?", 1.0),
		advancedRule("r-no", "no?", 1.0),
	}, []string{"f1"}, search.BackendLocal)

	outcome := outcomes["f1"]
	require.Len(t, outcome.Info, 2)
	require.False(t, outcome.Info["r-no"].Score)
	// A no verdict still counts as applied, diluting the yes weight.
	require.InDelta(t, 0.5, outcome.Score, 1e-9)
}
