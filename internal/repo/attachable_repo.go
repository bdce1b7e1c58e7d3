package repo

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/docrankhq/docrank/internal/model"
)

type AttachableRepo struct {
	db *sql.DB
}

func NewAttachableRepo(db *sql.DB) *AttachableRepo {
	return &AttachableRepo{db: db}
}

func (r *AttachableRepo) UpsertBatch(ctx context.Context, items []*model.AttachableContent) error {
	if len(items) == 0 {
		return nil
	}
	const query = `
		INSERT INTO attachable_contents (token, file_id, type, content)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token) DO UPDATE SET
			file_id = EXCLUDED.file_id,
			type = EXCLUDED.type,
			content = EXCLUDED.content
	`
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, item := range items {
		if _, err := tx.ExecContext(ctx, query, item.Token, item.FileID, item.Type, item.Content); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListByTokens resolves UUID placeholder tokens to their extracted elements.
// Unknown tokens are simply absent from the result map.
func (r *AttachableRepo) ListByTokens(ctx context.Context, tokens []string) (map[string]model.AttachableContent, error) {
	if len(tokens) == 0 {
		return map[string]model.AttachableContent{}, nil
	}
	query := `SELECT token, file_id, type, content FROM attachable_contents WHERE token IN (?)`
	query, args, err := sqlx.In(query, tokens)
	if err != nil {
		return nil, err
	}
	query = sqlx.Rebind(sqlx.DOLLAR, query)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make(map[string]model.AttachableContent)
	for rows.Next() {
		var item model.AttachableContent
		if err := rows.Scan(&item.Token, &item.FileID, &item.Type, &item.Content); err != nil {
			return nil, err
		}
		result[item.Token] = item
	}
	return result, rows.Err()
}
