package service

import (
	"sort"

	"github.com/docrankhq/docrank/internal/model"
)

const (
	// TopChunksPerFile is the retention limit for top-level retrieval.
	TopChunksPerFile = 5
	// TopChunksPerFileAdvanced is the retention limit inside advanced-rule
	// sub-queries.
	TopChunksPerFileAdvanced = 4
	// TopChunksPerFileLegacy is the retention limit of the legacy BGE-only
	// path.
	TopChunksPerFileLegacy = 10
)

// AggregateChunks groups ranked chunks by parent file, keeps each file's
// topK best chunks in descending score order, and sets the file's baseline
// relevance to the mean of the retained chunk scores. File order follows
// first appearance in the input; the fusion stage re-sorts anyway.
func AggregateChunks(chunks []model.RankedChunk, topK int) []*model.ExtendedFileForSearch {
	if topK <= 0 {
		topK = TopChunksPerFile
	}
	grouped := make(map[string][]model.RankedChunk)
	order := make([]string, 0)
	for _, chunk := range chunks {
		if _, seen := grouped[chunk.FileID]; !seen {
			order = append(order, chunk.FileID)
		}
		grouped[chunk.FileID] = append(grouped[chunk.FileID], chunk)
	}

	files := make([]*model.ExtendedFileForSearch, 0, len(order))
	for _, fileID := range order {
		fileChunks := grouped[fileID]
		sort.SliceStable(fileChunks, func(i, j int) bool {
			return fileChunks[i].Score > fileChunks[j].Score
		})
		if len(fileChunks) > topK {
			fileChunks = fileChunks[:topK]
		}
		var sum float64
		for _, c := range fileChunks {
			sum += c.Score
		}
		avg := 0.0
		if len(fileChunks) > 0 {
			avg = sum / float64(len(fileChunks))
		}
		files = append(files, &model.ExtendedFileForSearch{
			File:                   model.File{ID: fileID},
			Chunks:                 fileChunks,
			AvgChunkRelevanceScore: avg,
		})
	}
	return files
}
