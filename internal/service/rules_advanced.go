package service

import (
	"context"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docrankhq/docrank/internal/ai"
	"github.com/docrankhq/docrank/internal/model"
	"github.com/docrankhq/docrank/internal/search"
)

// advancedRetrievalMultiplier sizes the per-rule chunk retrieval relative to
// the candidate file count, so each file has a fair chance of surfacing
// enough evidence chunks.
const advancedRetrievalMultiplier = 6

// ChunkSearcher is the retrieval surface the rule engines and the retrieval
// service share. Search degrades to an empty slice on upstream failure.
type ChunkSearcher interface {
	Search(ctx context.Context, query string, fileIDs []string, limit int, backend search.Backend) []model.RankedChunk
	PreRanked(backend search.Backend) bool
}

// AdvancedRuleEvaluator answers free-text yes/no rule questions against file
// content. For each rule it retrieves evidence chunks using the rule's
// question as the query, then asks the judge model for a verdict per file.
type AdvancedRuleEvaluator struct {
	searcher ChunkSearcher
	judge    ai.IGenerator
	attach   AttachableLister
}

func NewAdvancedRuleEvaluator(searcher ChunkSearcher, judge ai.IGenerator, attach AttachableLister) *AdvancedRuleEvaluator {
	return &AdvancedRuleEvaluator{searcher: searcher, judge: judge, attach: attach}
}

// Evaluate runs every advanced rule against the candidate files and returns
// one outcome per file that produced at least one verdict. Rules run
// concurrently; a failed judgement drops that single (rule, file) pair and
// never poisons the rest. A file's score is the weight sum of its yes
// verdicts normalized by the number of rules that reached a verdict for it.
func (e *AdvancedRuleEvaluator) Evaluate(ctx context.Context, rules []model.Rule, fileIDs []string, backend search.Backend) map[string]model.AdvancedRuleOutcome {
	advanced := make([]model.Rule, 0, len(rules))
	for _, r := range rules {
		if r.Type == model.RuleTypeAdvanced {
			advanced = append(advanced, r)
		}
	}
	if len(advanced) == 0 || len(fileIDs) == 0 {
		return map[string]model.AdvancedRuleOutcome{}
	}
	logger := logutil.GetLogger(ctx)

	type fileSlot struct {
		info    map[string]model.JudgeVerdict
		yesSum  float64
		applied int
	}
	var mu sync.Mutex
	slots := make(map[string]*fileSlot)

	var wg sync.WaitGroup
	for _, rule := range advanced {
		wg.Add(1)
		go func(rule model.Rule) {
			defer wg.Done()
			limit := advancedRetrievalMultiplier * len(fileIDs)
			chunks := e.searcher.Search(ctx, rule.Question, fileIDs, limit, backend)
			if len(chunks) == 0 {
				logger.Warn("no evidence chunks for advanced rule", zap.String("rule", rule.Name))
				return
			}
			files := AggregateChunks(chunks, TopChunksPerFileAdvanced)
			if e.attach != nil {
				RehydrateChunks(ctx, e.attach, files)
			}
			for _, file := range files {
				verdict, err := e.judgeOne(ctx, rule, file.Chunks)
				if err != nil {
					logger.Warn("advanced rule judgement failed",
						zap.String("rule", rule.Name), zap.String("file_id", file.ID), zap.Error(err))
					continue
				}
				mu.Lock()
				slot := slots[file.ID]
				if slot == nil {
					slot = &fileSlot{info: make(map[string]model.JudgeVerdict)}
					slots[file.ID] = slot
				}
				slot.info[rule.Name] = verdict
				slot.applied++
				if verdict.Score {
					slot.yesSum += rule.Weight
				}
				mu.Unlock()
			}
		}(rule)
	}
	wg.Wait()

	outcomes := make(map[string]model.AdvancedRuleOutcome, len(slots))
	for fileID, slot := range slots {
		var score float64
		if slot.applied > 0 {
			score = slot.yesSum / float64(slot.applied)
		}
		outcomes[fileID] = model.AdvancedRuleOutcome{Info: slot.info, Score: score}
	}
	return outcomes
}

func (e *AdvancedRuleEvaluator) judgeOne(ctx context.Context, rule model.Rule, chunks []model.RankedChunk) (model.JudgeVerdict, error) {
	prompt := buildJudgePrompt(rule.Question, chunks)
	raw, err := e.judge.Generate(ctx, prompt)
	if err != nil {
		return model.JudgeVerdict{}, err
	}
	return parseJudgeVerdict(raw)
}
