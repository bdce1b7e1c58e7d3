package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/docrankhq/docrank/internal/model"
	"github.com/docrankhq/docrank/internal/pkg/dbutil"
	appErr "github.com/docrankhq/docrank/internal/pkg/errors"
)

type FileRepo struct {
	db *sql.DB
}

func NewFileRepo(db *sql.DB) *FileRepo {
	return &FileRepo{db: db}
}

func (r *FileRepo) Upsert(ctx context.Context, file *model.File) error {
	metadata, err := json.Marshal(file.Metadata)
	if err != nil {
		return fmt.Errorf("encode file metadata: %w", err)
	}
	const query = `
		INSERT INTO files (id, user_id, name, metadata, tokens, ctime, mtime)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			metadata = EXCLUDED.metadata,
			tokens = EXCLUDED.tokens,
			mtime = EXCLUDED.mtime
	`
	_, err = r.db.ExecContext(ctx, query, file.ID, file.UserID, file.Name, metadata, file.Tokens, file.Ctime, file.Mtime)
	return err
}

func (r *FileRepo) Get(ctx context.Context, id string) (*model.File, error) {
	where := map[string]interface{}{
		"id": id,
	}
	sqlStr, args, err := builder.BuildSelect("files", where, []string{"id", "user_id", "name", "metadata", "tokens", "ctime", "mtime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	file, err := scanFile(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return file, nil
}

func (r *FileRepo) ListByIDs(ctx context.Context, ids []string) ([]model.File, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT id, user_id, name, metadata, tokens, ctime, mtime FROM files WHERE id IN (?)`
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
	var files []model.File
	for rows.Next() {
		file, err := scanFile(rows.Scan)
		if err != nil {
			return nil, err
		}
		files = append(files, *file)
	}
	return files, rows.Err()
}

func (r *FileRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.File, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"_orderby": "mtime desc",
		"_limit":   []uint{uint(offset), uint(limit)},
	}
	sqlStr, args, err := builder.BuildSelect("files", where, []string{"id", "user_id", "name", "metadata", "tokens", "ctime", "mtime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var files []model.File
	for rows.Next() {
		file, err := scanFile(rows.Scan)
		if err != nil {
			return nil, err
		}
		files = append(files, *file)
	}
	return files, rows.Err()
}

func scanFile(scan func(dest ...interface{}) error) (*model.File, error) {
	var file model.File
	var metadata []byte
	if err := scan(&file.ID, &file.UserID, &file.Name, &metadata, &file.Tokens, &file.Ctime, &file.Mtime); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &file.Metadata); err != nil {
			return nil, fmt.Errorf("decode file metadata: %w", err)
		}
	}
	return &file, nil
}
