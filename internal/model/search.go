package model

// JudgeVerdict is the LLM judge's answer to one advanced rule question for
// one file.
type JudgeVerdict struct {
	Score       bool   `json:"score"`
	Explanation string `json:"explanation,omitempty"`
}

// AdvancedRuleOutcome collects the advanced-rule signals for a single file
// after all rules have settled. Records are immutable once handed to the
// streaming loop; prefetch tasks build fresh ones instead of mutating shared
// state.
type AdvancedRuleOutcome struct {
	Info  map[string]JudgeVerdict `json:"advanced_rule_info"`
	Score float64                 `json:"advanced_rules_relevance_score"`
}

// ExtendedFileForSearch is the per-request decoration of a File with every
// relevance signal computed for one query. It lives for the duration of a
// retrieval request; only the provenance subset is persisted.
type ExtendedFileForSearch struct {
	File
	Chunks                      []RankedChunk           `json:"chunks"`
	AvgChunkRelevanceScore      float64                 `json:"avg_chunk_relevance_score"`
	BasicRuleInfo               map[string]bool         `json:"basic_rule_info,omitempty"`
	BasicRuleRelevanceScore     float64                 `json:"basic_rule_relevance_score"`
	AdvancedRuleInfo            map[string]JudgeVerdict `json:"advanced_rule_info,omitempty"`
	AdvancedRulesRelevanceScore float64                 `json:"advanced_rules_relevance_score"`
	Score                       float64                 `json:"score"`
	AlreadyQueried              bool                    `json:"already_queried"`
}

// ChunkIDs lists the ids of the retained chunks, in score order.
func (f *ExtendedFileForSearch) ChunkIDs() []string {
	ids := make([]string, 0, len(f.Chunks))
	for _, c := range f.Chunks {
		ids = append(ids, c.ID)
	}
	return ids
}
