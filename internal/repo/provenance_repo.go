package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/docrankhq/docrank/internal/model"
	appErr "github.com/docrankhq/docrank/internal/pkg/errors"
)

type ProvenanceRepo struct {
	db *sql.DB
}

func NewProvenanceRepo(db *sql.DB) *ProvenanceRepo {
	return &ProvenanceRepo{db: db}
}

func (r *ProvenanceRepo) Get(ctx context.Context, chatID, fileID string) (*model.ChatFileProvenance, error) {
	const query = `
		SELECT chat_id, file_id, user_id, score_metadata, query_related_metadata, mtime
		FROM chat_file_provenance
		WHERE chat_id = $1 AND file_id = $2
	`
	row := r.db.QueryRowContext(ctx, query, chatID, fileID)
	p, err := scanProvenance(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *ProvenanceRepo) ListByChat(ctx context.Context, chatID string) ([]model.ChatFileProvenance, error) {
	const query = `
		SELECT chat_id, file_id, user_id, score_metadata, query_related_metadata, mtime
		FROM chat_file_provenance
		WHERE chat_id = $1
		ORDER BY mtime DESC
	`
	rows, err := r.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.ChatFileProvenance
	for rows.Next() {
		p, err := scanProvenance(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}

// Upsert writes a (chat, file) provenance row. On update the original
// user_id is kept: ownership of the history stays with whoever first linked
// the file into the chat.
func (r *ProvenanceRepo) Upsert(ctx context.Context, p *model.ChatFileProvenance) error {
	scoreMeta, err := json.Marshal(p.ScoreMetadata)
	if err != nil {
		return fmt.Errorf("encode score metadata: %w", err)
	}
	entries := p.QueryRelatedMetadata
	if entries == nil {
		entries = []model.QueryProvenance{}
	}
	queryMeta, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode query metadata: %w", err)
	}
	const query = `
		INSERT INTO chat_file_provenance (chat_id, file_id, user_id, score_metadata, query_related_metadata, mtime)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (chat_id, file_id) DO UPDATE SET
			score_metadata = EXCLUDED.score_metadata,
			query_related_metadata = EXCLUDED.query_related_metadata,
			mtime = EXCLUDED.mtime
	`
	_, err = r.db.ExecContext(ctx, query, p.ChatID, p.FileID, p.UserID, scoreMeta, queryMeta, p.Mtime)
	return err
}

func scanProvenance(scan func(dest ...interface{}) error) (*model.ChatFileProvenance, error) {
	var p model.ChatFileProvenance
	var scoreMeta, queryMeta []byte
	if err := scan(&p.ChatID, &p.FileID, &p.UserID, &scoreMeta, &queryMeta, &p.Mtime); err != nil {
		return nil, err
	}
	if len(scoreMeta) > 0 {
		if err := json.Unmarshal(scoreMeta, &p.ScoreMetadata); err != nil {
			return nil, fmt.Errorf("decode score metadata: %w", err)
		}
	}
	if len(queryMeta) > 0 {
		if err := json.Unmarshal(queryMeta, &p.QueryRelatedMetadata); err != nil {
			return nil, fmt.Errorf("decode query metadata: %w", err)
		}
	}
	return &p, nil
}
