package service

import (
	"context"
	"io"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docrankhq/docrank/internal/filestore"
	"github.com/docrankhq/docrank/internal/model"
	appErr "github.com/docrankhq/docrank/internal/pkg/errors"
	"github.com/docrankhq/docrank/internal/repo"
)

// FileService serves stored files and their retrieval history back to the
// owner: provenance re-display and original content download.
type FileService struct {
	files      *repo.FileRepo
	provenance *repo.ProvenanceRepo
	store      filestore.Store
}

func NewFileService(files *repo.FileRepo, provenance *repo.ProvenanceRepo, store filestore.Store) *FileService {
	return &FileService{files: files, provenance: provenance, store: store}
}

// GetProvenance returns the persisted retrieval history of one (chat, file)
// pair, owner-checked.
func (s *FileService) GetProvenance(ctx context.Context, userID, chatID, fileID string) (*model.ChatFileProvenance, error) {
	record, err := s.provenance.Get(ctx, chatID, fileID)
	if err != nil {
		return nil, err
	}
	if record.UserID != userID {
		return nil, appErr.ErrForbidden
	}
	return record, nil
}

// ListChatProvenance returns every file's retrieval history within a chat.
// Rows recorded for other users' files are filtered out, not an error: the
// caller asked for the whole chat, not a specific record.
func (s *FileService) ListChatProvenance(ctx context.Context, userID, chatID string) ([]model.ChatFileProvenance, error) {
	records, err := s.provenance.ListByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	owned := make([]model.ChatFileProvenance, 0, len(records))
	for _, record := range records {
		if record.UserID != userID {
			continue
		}
		owned = append(owned, record)
	}
	return owned, nil
}

func (s *FileService) Get(ctx context.Context, userID, fileID string) (*model.File, error) {
	file, err := s.files.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.UserID != userID {
		return nil, appErr.ErrForbidden
	}
	return file, nil
}

func (s *FileService) List(ctx context.Context, userID string, limit, offset int) ([]model.File, error) {
	return s.files.ListByUser(ctx, userID, limit, offset)
}

// OpenContent streams the original file bytes from the configured store.
func (s *FileService) OpenContent(ctx context.Context, userID, fileID string) (io.ReadCloser, *model.File, error) {
	file, err := s.Get(ctx, userID, fileID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Open(ctx, fileID)
	if err != nil {
		logutil.GetLogger(ctx).Error("failed to open file content", zap.String("file_id", fileID), zap.Error(err))
		return nil, nil, appErr.ErrNotFound
	}
	return rc, file, nil
}
