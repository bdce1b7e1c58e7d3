package model

// EmbeddingCache is one persisted embedding row. The cache key is
// (model_name, task_type, content_hash); the text itself is never stored.
type EmbeddingCache struct {
	ModelName   string    `json:"model_name"`
	TaskType    string    `json:"task_type"`
	ContentHash string    `json:"content_hash"`
	Embedding   []float32 `json:"embedding"`
	Ctime       int64     `json:"ctime"`
}
