package model

const (
	AttachableTypeList        = "list"
	AttachableTypeOrderedList = "ordered-list"
	AttachableTypeTable       = "table"
	AttachableTypeMathBlock   = "math-block"
)

// AttachableContent is a non-text element (table, list, math block) extracted
// during ingestion and referenced by a UUID token inside chunk text. The
// rendered content is substituted at read time so the embedded chunk text
// stays stable.
type AttachableContent struct {
	Token   string `json:"token"`
	FileID  string `json:"file_id"`
	Type    string `json:"type"`
	Content string `json:"content"`
}
