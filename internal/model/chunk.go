package model

// Chunk is the unit of retrieval: a contiguous slice of a parsed document
// with its own embedding. Chunks with LayerNumber > 0 are synthetic parents
// whose Children reference lower-layer chunks of the same file.
type Chunk struct {
	ID                   string    `json:"id"`
	FileID               string    `json:"file_id"`
	ChunkIndex           int       `json:"chunk_index"`
	Content              string    `json:"content"`
	Tokens               int       `json:"tokens"`
	Embedding            []float32 `json:"-"`
	LayerNumber          int       `json:"layer_number"`
	Children             []string  `json:"children,omitempty"`
	AttachableContentRef string    `json:"attachable_content_ref,omitempty"`
}

// RankedChunk is a chunk decorated with a relevance score from one of the
// search backends or the reranker.
type RankedChunk struct {
	Chunk
	Score float64 `json:"score"`
}
