package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/docrankhq/docrank/internal/config"
)

// Store resolves file ids to their original bytes. The retrieval core only
// ever reads; Save exists for the ingestion tooling.
type Store interface {
	Save(ctx context.Context, key string, r io.ReadSeeker, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Factory builds a Store from its backend-specific config blob.
type Factory func(args interface{}) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs a backend factory under name. Backends register
// themselves from init.
func Register(name string, factory Factory) {
	name = normalizeType(name)
	if name == "" || factory == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	factories[name] = factory
}

// New builds the store backend named by cfg.Type.
func New(cfg config.FileStoreConfig) (Store, error) {
	name := normalizeType(cfg.Type)
	if name == "" {
		return nil, fmt.Errorf("file_store.type is required")
	}
	mu.RLock()
	factory, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported file store type: %s", cfg.Type)
	}
	return factory(cfg.Data)
}

func normalizeType(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// decodeConfig round-trips the raw config blob into the backend's own
// config struct.
func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("store config is required")
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode store config: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode store config: %w", err)
	}
	return nil
}
