package model

// File is an uploaded document. Metadata carries the structured attributes
// extracted at ingestion time (format, author, page counts, ...) that basic
// rules evaluate against.
type File struct {
	ID       string                 `json:"id"`
	UserID   string                 `json:"user_id"`
	Name     string                 `json:"name"`
	Metadata map[string]interface{} `json:"metadata"`
	Tokens   int                    `json:"tokens"`
	Ctime    int64                  `json:"ctime"`
	Mtime    int64                  `json:"mtime"`
}
