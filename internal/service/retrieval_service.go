package service

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docrankhq/docrank/internal/model"
	appErr "github.com/docrankhq/docrank/internal/pkg/errors"
	"github.com/docrankhq/docrank/internal/search"
)

// FileLister resolves file ids to their stored payloads.
type FileLister interface {
	ListByIDs(ctx context.Context, ids []string) ([]model.File, error)
}

// RuleLister fetches a user's active rules, optionally filtered by type.
type RuleLister interface {
	ListActive(ctx context.Context, userID, ruleType string) ([]model.Rule, error)
}

// ChunkReranker reorders a candidate list with a more precise model.
// Implementations degrade to the input order on failure.
type ChunkReranker interface {
	Enabled() bool
	Rerank(ctx context.Context, query string, chunks []model.RankedChunk) []model.RankedChunk
}

// RetrievalService runs the synchronous half of the pipeline: candidate
// search, rerank, aggregation, ownership checks, basic rules and fusion.
// The streaming layer sits on top of it.
type RetrievalService struct {
	searcher       ChunkSearcher
	reranker       ChunkReranker
	files          FileLister
	rules          RuleLister
	attach         AttachableLister
	candidateLimit int
}

func NewRetrievalService(searcher ChunkSearcher, reranker ChunkReranker, files FileLister, rules RuleLister, attach AttachableLister, candidateLimit int) *RetrievalService {
	if candidateLimit <= 0 {
		candidateLimit = 50
	}
	return &RetrievalService{
		searcher:       searcher,
		reranker:       reranker,
		files:          files,
		rules:          rules,
		attach:         attach,
		candidateLimit: candidateLimit,
	}
}

// Retrieve turns a query into the fused, ordered file list plus the user's
// active rules. fileIDs narrows the search to explicit candidates; an empty
// slice searches the user's whole corpus. An empty result is not an error.
// An explicit candidate owned by someone else fails the whole request;
// foreign files surfacing from an open search are silently dropped.
func (s *RetrievalService) Retrieve(ctx context.Context, userID, query string, fileIDs []string, backend search.Backend) ([]*model.ExtendedFileForSearch, []model.Rule, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("user_id", userID), zap.String("backend", string(backend)))
	chunks := s.searcher.Search(ctx, query, fileIDs, s.candidateLimit, backend)
	if len(chunks) == 0 {
		logger.Info("search returned no candidates")
		return nil, nil, nil
	}
	if s.reranker != nil && s.reranker.Enabled() && !s.searcher.PreRanked(backend) {
		chunks = s.reranker.Rerank(ctx, query, chunks)
	}
	files := AggregateChunks(chunks, TopChunksPerFile)
	if s.attach != nil {
		RehydrateChunks(ctx, s.attach, files)
	}
	files, err := s.resolveOwnership(ctx, userID, fileIDs, files)
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return nil, nil, nil
	}
	rules, err := s.rules.ListActive(ctx, userID, "")
	if err != nil {
		logger.Error("failed to load active rules", zap.Error(err))
		return nil, nil, err
	}
	s.applyBasicRules(rules, files)
	return FuseAndFilter(files), rules, nil
}

// RankFiles is the synchronous rule-authoring surface: it evaluates the
// given rules against explicit files without any search or streaming.
// Advanced outcomes, when an evaluator is supplied, are merged in by the
// caller; this path covers the basic engine.
func (s *RetrievalService) RankFiles(ctx context.Context, userID string, rules []model.Rule, fileIDs []string) ([]model.BasicRuleRanking, error) {
	if len(fileIDs) == 0 {
		return nil, appErr.ErrInvalid
	}
	metas, err := s.files.ListByIDs(ctx, fileIDs)
	if err != nil {
		return nil, err
	}
	owned := make([]model.File, 0, len(metas))
	for _, f := range metas {
		if f.UserID != userID {
			return nil, appErr.ErrForbidden
		}
		owned = append(owned, f)
	}
	return RankFilesByBasicRules(rules, owned), nil
}

func (s *RetrievalService) resolveOwnership(ctx context.Context, userID string, requested []string, files []*model.ExtendedFileForSearch) ([]*model.ExtendedFileForSearch, error) {
	logger := logutil.GetLogger(ctx)
	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, f.ID)
	}
	metas, err := s.files.ListByIDs(ctx, ids)
	if err != nil {
		logger.Error("failed to load file payloads", zap.Error(err))
		return nil, err
	}
	byID := make(map[string]model.File, len(metas))
	for _, m := range metas {
		byID[m.ID] = m
	}
	explicit := make(map[string]bool, len(requested))
	for _, id := range requested {
		explicit[id] = true
	}
	kept := make([]*model.ExtendedFileForSearch, 0, len(files))
	for _, f := range files {
		meta, ok := byID[f.ID]
		if !ok {
			logger.Warn("search returned unknown file, dropping", zap.String("file_id", f.ID))
			continue
		}
		if meta.UserID != userID {
			if explicit[f.ID] {
				return nil, appErr.ErrForbidden
			}
			logger.Warn("search surfaced foreign file, dropping", zap.String("file_id", f.ID))
			continue
		}
		f.File = meta
		kept = append(kept, f)
	}
	return kept, nil
}

func (s *RetrievalService) applyBasicRules(rules []model.Rule, files []*model.ExtendedFileForSearch) {
	metas := make([]model.File, 0, len(files))
	for _, f := range files {
		metas = append(metas, f.File)
	}
	rankings := RankFilesByBasicRules(rules, metas)
	byID := make(map[string]model.BasicRuleRanking, len(rankings))
	for _, r := range rankings {
		byID[r.FileID] = r
	}
	for _, f := range files {
		ranking, ok := byID[f.ID]
		if !ok {
			continue
		}
		f.BasicRuleInfo = ranking.ComparisonResults
		f.BasicRuleRelevanceScore = ranking.TotalScore
	}
}
