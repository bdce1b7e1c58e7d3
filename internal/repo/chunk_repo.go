package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"github.com/docrankhq/docrank/internal/model"
)

type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

const chunkColumns = "id, file_id, chunk_index, content, tokens, layer_number, children, attachable_content_ref"

func scanChunk(scan func(dest ...interface{}) error) (model.Chunk, error) {
	var c model.Chunk
	var children []byte
	if err := scan(&c.ID, &c.FileID, &c.ChunkIndex, &c.Content, &c.Tokens, &c.LayerNumber, &children, &c.AttachableContentRef); err != nil {
		return c, err
	}
	if len(children) > 0 {
		if err := json.Unmarshal(children, &c.Children); err != nil {
			return c, fmt.Errorf("decode chunk children: %w", err)
		}
	}
	return c, nil
}

// UpsertBatch persists chunks idempotently. Re-ingesting a file overwrites
// the existing rows instead of duplicating them.
func (r *ChunkRepo) UpsertBatch(ctx context.Context, chunks []*model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	const query = `
		INSERT INTO chunks (id, file_id, chunk_index, content, tokens, embedding, layer_number, children, attachable_content_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			file_id = EXCLUDED.file_id,
			chunk_index = EXCLUDED.chunk_index,
			content = EXCLUDED.content,
			tokens = EXCLUDED.tokens,
			embedding = EXCLUDED.embedding,
			layer_number = EXCLUDED.layer_number,
			children = EXCLUDED.children,
			attachable_content_ref = EXCLUDED.attachable_content_ref
	`
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, c := range chunks {
		children := c.Children
		if children == nil {
			children = []string{}
		}
		childrenBlob, err := json.Marshal(children)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query,
			c.ID, c.FileID, c.ChunkIndex, c.Content, c.Tokens,
			pgvector.NewVector(c.Embedding), c.LayerNumber, childrenBlob, c.AttachableContentRef,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// BackfillChildren fills the children lists of a completed layer. Chunks are
// otherwise immutable once created.
func (r *ChunkRepo) BackfillChildren(ctx context.Context, fileID string, children map[string][]string) error {
	if len(children) == 0 {
		return nil
	}
	const query = `UPDATE chunks SET children = $1 WHERE id = $2 AND file_id = $3`
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for chunkID, childIDs := range children {
		blob, err := json.Marshal(childIDs)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, blob, chunkID, fileID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *ChunkRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + chunkColumns + ` FROM chunks WHERE id IN (?)`
	query, args, err := sqlx.In(query, ids)
	if err != nil {
		return nil, err
	}
	query = sqlx.Rebind(sqlx.DOLLAR, query)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var chunks []model.Chunk
	for rows.Next() {
		c, err := scanChunk(rows.Scan)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// NearestNeighbors runs a cosine nearest-neighbor lookup over leaf chunks,
// optionally restricted to a candidate file set. Scores are similarities in
// [0, 1], higher is better.
func (r *ChunkRepo) NearestNeighbors(ctx context.Context, embedding []float32, fileIDs []string, limit int) ([]model.RankedChunk, error) {
	if limit <= 0 {
		return nil, nil
	}
	query := `
		SELECT ` + chunkColumns + `, 1 - (embedding <=> $1) AS score
		FROM chunks
		WHERE layer_number = 0
	`
	args := []interface{}{pgvector.NewVector(embedding)}
	if len(fileIDs) > 0 {
		placeholders := make([]string, 0, len(fileIDs))
		for i, id := range fileIDs {
			placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
			args = append(args, id)
		}
		query += ` AND file_id IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += fmt.Sprintf(` ORDER BY embedding <=> $1 LIMIT %d`, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.RankedChunk
	for rows.Next() {
		var rc model.RankedChunk
		var children []byte
		if err := rows.Scan(&rc.ID, &rc.FileID, &rc.ChunkIndex, &rc.Content, &rc.Tokens,
			&rc.LayerNumber, &children, &rc.AttachableContentRef, &rc.Score); err != nil {
			return nil, err
		}
		if len(children) > 0 {
			if err := json.Unmarshal(children, &rc.Children); err != nil {
				return nil, fmt.Errorf("decode chunk children: %w", err)
			}
		}
		results = append(results, rc)
	}
	return results, rows.Err()
}
