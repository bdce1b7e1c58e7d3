package service

import (
	"sort"

	"github.com/docrankhq/docrank/internal/model"
)

// RelevanceFloor filters out files whose fused score is at or below 9%.
const RelevanceFloor = 0.09

// FuseAndFilter settles each file's final score, applies the relevance
// floor, and orders the survivors for presentation.
//
// The ranking score is the average chunk relevance alone. Basic and
// advanced rule scores are surfaced alongside it but do not feed the
// ranking.
func FuseAndFilter(files []*model.ExtendedFileForSearch) []*model.ExtendedFileForSearch {
	kept := make([]*model.ExtendedFileForSearch, 0, len(files))
	for _, f := range files {
		f.Score = f.AvgChunkRelevanceScore
		if f.Score <= RelevanceFloor {
			continue
		}
		kept = append(kept, f)
	}
	// Stable: ties keep aggregator emission order.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})
	return kept
}
