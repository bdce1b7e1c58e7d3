package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docrankhq/docrank/internal/ai"
	"github.com/docrankhq/docrank/internal/model"
	appErr "github.com/docrankhq/docrank/internal/pkg/errors"
	"github.com/docrankhq/docrank/internal/search"
)

// flushThreshold is the accumulator size that triggers a client flush while
// an assessment is streaming. Small enough to feel live, large enough to
// avoid per-token writes.
const flushThreshold = 150

const noResultsMessage = "No relevant documents were found for this query. Try rephrasing, or check that the files you expect are attached to this chat."

// FlushWriter is the client-facing output stream. Flush pushes buffered
// bytes to the wire immediately.
type FlushWriter interface {
	io.Writer
	Flush()
}

// Retriever produces the fused, ordered candidate list for a query.
type Retriever interface {
	Retrieve(ctx context.Context, userID, query string, fileIDs []string, backend search.Backend) ([]*model.ExtendedFileForSearch, []model.Rule, error)
}

// AdvancedEvaluator judges advanced rules for a set of files.
type AdvancedEvaluator interface {
	Evaluate(ctx context.Context, rules []model.Rule, fileIDs []string, backend search.Backend) map[string]model.AdvancedRuleOutcome
}

// ProvenanceStore persists per-(chat, file) retrieval history.
type ProvenanceStore interface {
	Get(ctx context.Context, chatID, fileID string) (*model.ChatFileProvenance, error)
	Upsert(ctx context.Context, p *model.ChatFileProvenance) error
}

// RetrieveRequest is one retrieval turn inside a chat.
type RetrieveRequest struct {
	UserID         string
	ChatID         string
	Query          string
	FileIDs        []string
	SequenceNumber int
	Backend        search.Backend
}

// StreamService drives the per-file assessment stream. Files are emitted
// strictly in fused-rank order; advanced-rule judging for files further down
// the queue runs ahead of the cursor so judge latency hides behind the text
// the user is already reading.
type StreamService struct {
	retriever  Retriever
	advanced   AdvancedEvaluator
	assessor   ai.IStreamer
	provenance ProvenanceStore
}

func NewStreamService(retriever Retriever, advanced AdvancedEvaluator, assessor ai.IStreamer, provenance ProvenanceStore) *StreamService {
	return &StreamService{
		retriever:  retriever,
		advanced:   advanced,
		assessor:   assessor,
		provenance: provenance,
	}
}

// RetrieveAndStream runs the whole pipeline for one turn and writes the wire
// format to w. Once the first byte is written the stream is all-or-nothing:
// any failure errors the stream as a whole, though already-flushed text
// stays visible on the client.
func (s *StreamService) RetrieveAndStream(ctx context.Context, req *RetrieveRequest, w FlushWriter) error {
	if strings.TrimSpace(req.Query) == "" {
		return appErr.ErrInvalid
	}
	logger := logutil.GetLogger(ctx).With(
		zap.String("chat_id", req.ChatID),
		zap.Int("sequence", req.SequenceNumber))

	files, rules, err := s.retriever.Retrieve(ctx, req.UserID, req.Query, req.FileIDs, req.Backend)
	if err != nil {
		return translateUpstreamErr(err)
	}
	if len(files) == 0 {
		if _, err := io.WriteString(w, noResultsMessage); err != nil {
			return err
		}
		w.Flush()
		return nil
	}
	advRules := make([]model.Rule, 0, len(rules))
	for _, r := range rules {
		if r.Type == model.RuleTypeAdvanced {
			advRules = append(advRules, r)
		}
	}

	// Judge results for the first two files must be settled before any text
	// goes out; everything after rides the lookahead window.
	futures := make([]*advancedFuture, len(files))
	for i := 0; i < len(files) && i < 2; i++ {
		futures[i] = s.prefetch(ctx, advRules, files[i], req.Backend)
	}
	for i := 0; i < len(files) && i < 2; i++ {
		if err := futures[i].wait(ctx); err != nil {
			return err
		}
	}

	var persistWG sync.WaitGroup
	defer persistWG.Wait()

	for i, file := range files {
		if i+2 < len(files) {
			futures[i+2] = s.prefetch(ctx, advRules, files[i+2], req.Backend)
		}
		if err := futures[i].wait(ctx); err != nil {
			return err
		}
		futures[i].mergeInto(file)

		existing, err := s.loadProvenance(ctx, req.ChatID, file.ID)
		if err != nil {
			logger.Warn("failed to load provenance", zap.String("file_id", file.ID), zap.Error(err))
		}
		file.AlreadyQueried = existing != nil && len(existing.QueryRelatedMetadata) > 0

		if err := s.emitFileHeader(w, file, rules); err != nil {
			return err
		}
		summary, err := s.streamAssessment(ctx, req.Query, file, w)
		if err != nil {
			return translateUpstreamErr(err)
		}

		persistWG.Add(1)
		go func(file *model.ExtendedFileForSearch, existing *model.ChatFileProvenance, summary string) {
			defer persistWG.Done()
			s.persistProvenance(ctx, req, file, existing, summary)
		}(file, existing, summary)
	}
	return nil
}

type advancedFuture struct {
	done    chan struct{}
	outcome model.AdvancedRuleOutcome
	found   bool
}

func (s *StreamService) prefetch(ctx context.Context, rules []model.Rule, file *model.ExtendedFileForSearch, backend search.Backend) *advancedFuture {
	fut := &advancedFuture{done: make(chan struct{})}
	if len(rules) == 0 || s.advanced == nil {
		close(fut.done)
		return fut
	}
	go func() {
		defer close(fut.done)
		outcomes := s.advanced.Evaluate(ctx, rules, []string{file.ID}, backend)
		if outcome, ok := outcomes[file.ID]; ok {
			fut.outcome = outcome
			fut.found = true
		}
	}()
	return fut
}

func (f *advancedFuture) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.done:
		return nil
	}
}

// mergeInto is the single synchronization point where prefetch results touch
// the shared file record; the prefetch task itself never mutates it.
func (f *advancedFuture) mergeInto(file *model.ExtendedFileForSearch) {
	if !f.found {
		return
	}
	file.AdvancedRuleInfo = f.outcome.Info
	file.AdvancedRulesRelevanceScore = f.outcome.Score
}

func (s *StreamService) loadProvenance(ctx context.Context, chatID, fileID string) (*model.ChatFileProvenance, error) {
	if s.provenance == nil {
		return nil, nil
	}
	existing, err := s.provenance.Get(ctx, chatID, fileID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return existing, nil
}

type fileMetadataBlock struct {
	FileName           string `json:"fileName"`
	FileID             string `json:"fileId"`
	DuplicateReference bool   `json:"duplicateReference"`
}

type fileRulesBlock struct {
	BasicRuleInfo               map[string]bool               `json:"basic_rule_info"`
	BasicRuleRelevanceScore     float64                       `json:"basic_rule_relevance_score"`
	AdvancedRuleInfo            map[string]model.JudgeVerdict `json:"advanced_rule_info"`
	AdvancedRulesRelevanceScore float64                       `json:"advanced_rules_relevance_score"`
}

func (s *StreamService) emitFileHeader(w FlushWriter, file *model.ExtendedFileForSearch, rules []model.Rule) error {
	meta, err := json.Marshal(fileMetadataBlock{
		FileName:           file.Name,
		FileID:             file.ID,
		DuplicateReference: file.AlreadyQueried,
	})
	if err != nil {
		return err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n```chatfilemetadata\n%s\n```\n\n", meta)
	fmt.Fprintf(&sb, "**Total Relevance Score: %s**\n", formatPercent(file.Score))
	fmt.Fprintf(&sb, "- Semantic Search Score: %s\n", formatPercent(file.AvgChunkRelevanceScore))
	fmt.Fprintf(&sb, "- Metadata Rules Score: %s\n", formatPercent(file.BasicRuleRelevanceScore))
	fmt.Fprintf(&sb, "- Advanced Rules Score: %s\n", formatPercent(file.AdvancedRulesRelevanceScore))
	if breakdown := buildRuleBreakdown(file, rules); breakdown != "" {
		sb.WriteString(breakdown)
	}
	ruleInfo, err := json.Marshal(fileRulesBlock{
		BasicRuleInfo:               file.BasicRuleInfo,
		BasicRuleRelevanceScore:     file.BasicRuleRelevanceScore,
		AdvancedRuleInfo:            file.AdvancedRuleInfo,
		AdvancedRulesRelevanceScore: file.AdvancedRulesRelevanceScore,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(&sb, "\n```chatfilecompanyrules\n%s\n```\n\n", ruleInfo)
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return err
	}
	w.Flush()
	return nil
}

func buildRuleBreakdown(file *model.ExtendedFileForSearch, rules []model.Rule) string {
	if len(file.BasicRuleInfo) == 0 && len(file.AdvancedRuleInfo) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n<details>\n<summary>Rule results</summary>\n\n")
	for _, rule := range rules {
		switch rule.Type {
		case model.RuleTypeBasic:
			satisfied, ok := file.BasicRuleInfo[rule.Name]
			if !ok {
				continue
			}
			fmt.Fprintf(&sb, "- %s %s\n", ruleMark(satisfied), rule.Name)
		case model.RuleTypeAdvanced:
			verdict, ok := file.AdvancedRuleInfo[rule.Name]
			if !ok {
				continue
			}
			if verdict.Explanation != "" {
				fmt.Fprintf(&sb, "- %s %s: %s\n", ruleMark(verdict.Score), rule.Name, verdict.Explanation)
			} else {
				fmt.Fprintf(&sb, "- %s %s\n", ruleMark(verdict.Score), rule.Name)
			}
		}
	}
	sb.WriteString("\n</details>\n")
	return sb.String()
}

func ruleMark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

// streamAssessment runs one file's assessment completion, relaying deltas to
// the client through a 150-character accumulator and repairing unbalanced
// collapsible tags before the segment is finalized. Returns the full
// (repaired) text for provenance.
func (s *StreamService) streamAssessment(ctx context.Context, query string, file *model.ExtendedFileForSearch, w FlushWriter) (string, error) {
	var segment strings.Builder
	var pending strings.Builder
	messages := buildAssessmentMessages(query, file)
	err := s.assessor.GenerateStream(ctx, messages, func(delta string) error {
		segment.WriteString(delta)
		pending.WriteString(delta)
		if pending.Len() >= flushThreshold {
			if _, err := io.WriteString(w, pending.String()); err != nil {
				return err
			}
			w.Flush()
			pending.Reset()
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	text := segment.String()
	repaired := BalanceCollapsibleTags(text)
	tail := pending.String() + repaired[len(text):]
	if tail != "" {
		if _, err := io.WriteString(w, tail); err != nil {
			return "", err
		}
		w.Flush()
	}
	return repaired, nil
}

// persistProvenance records this turn's retrieval for one file. Failures are
// logged only; provenance history never blocks the user-visible answer.
func (s *StreamService) persistProvenance(ctx context.Context, req *RetrieveRequest, file *model.ExtendedFileForSearch, existing *model.ChatFileProvenance, summary string) {
	if s.provenance == nil {
		return
	}
	logger := logutil.GetLogger(ctx).With(zap.String("chat_id", req.ChatID), zap.String("file_id", file.ID))
	entry := model.QueryProvenance{
		FileQuery:      req.Query,
		SequenceNumber: req.SequenceNumber,
		Metadata: model.ProvenanceMetadata{
			AverageChunkRelevance: file.AvgChunkRelevanceScore,
			Score:                 file.Score,
			ChunkIDs:              file.ChunkIDs(),
			Summary:               summary,
		},
	}
	record := existing
	if record == nil {
		record = &model.ChatFileProvenance{
			ChatID: req.ChatID,
			FileID: file.ID,
			UserID: req.UserID,
		}
	}
	record.ScoreMetadata = file.BasicRuleInfo
	record.QueryRelatedMetadata = append(
		model.PruneSupersededQueries(record.QueryRelatedMetadata, req.SequenceNumber), entry)
	record.Mtime = time.Now().UnixMilli()
	if err := s.provenance.Upsert(ctx, record); err != nil {
		logger.Error("failed to persist provenance", zap.Error(err))
	}
}

// translateUpstreamErr rewrites provider failures into credential guidance
// the user can act on.
func translateUpstreamErr(err error) error {
	if errors.Is(err, ai.ErrUnavailable) {
		return fmt.Errorf("%w: add or update your AI credentials in profile settings", appErr.ErrNoCredentials)
	}
	return err
}
