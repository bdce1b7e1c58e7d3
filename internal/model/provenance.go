package model

// ProvenanceMetadata captures what one query found in one file.
type ProvenanceMetadata struct {
	AverageChunkRelevance float64  `json:"average_chunk_relevance"`
	Score                 float64  `json:"score"`
	ChunkIDs              []string `json:"chunk_ids"`
	Summary               string   `json:"summary"`
}

// QueryProvenance is one retrieval of a file within a chat, ordered by the
// message turn it happened on.
type QueryProvenance struct {
	FileQuery      string             `json:"file_query"`
	Metadata       ProvenanceMetadata `json:"metadata"`
	SequenceNumber int                `json:"sequence_number"`
}

// ChatFileProvenance is the persisted retrieval history for one (chat, file)
// pair: the latest basic-rule snapshot plus the ordered list of queries that
// surfaced the file.
type ChatFileProvenance struct {
	ChatID               string            `json:"chat_id"`
	FileID               string            `json:"file_id"`
	UserID               string            `json:"user_id"`
	ScoreMetadata        map[string]bool   `json:"score_metadata,omitempty"`
	QueryRelatedMetadata []QueryProvenance `json:"query_related_metadata"`
	Mtime                int64             `json:"mtime"`
}

// PruneSupersededQueries drops entries whose sequence number is at or after
// seq. Redoing retrieval at a turn invalidates provenance recorded for that
// turn and any later one.
func PruneSupersededQueries(entries []QueryProvenance, seq int) []QueryProvenance {
	kept := make([]QueryProvenance, 0, len(entries))
	for _, e := range entries {
		if e.SequenceNumber >= seq {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}
