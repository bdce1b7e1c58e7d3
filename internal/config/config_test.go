package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `{
		"port": 9901,
		"jwt_secret": "s3cret",
		"database": {"dsn": "postgres://localhost/docrank"},
		"ai": {"provider": "gemini"}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 72, cfg.JWTTTLHours)
	require.Equal(t, "info", cfg.LogConfig.Level)
	require.Equal(t, 120, cfg.AI.TimeoutSeconds)
	require.Equal(t, "local", cfg.Search.Backend)
	require.Equal(t, 50, cfg.Search.CandidateLimit)
	require.Equal(t, 30, cfg.Reranker.TimeoutSeconds)
	require.Equal(t, "local", cfg.FileStore.Type)
	require.Equal(t, "0 4 * * *", cfg.Jobs.EmbedCacheCleanupSpec)
	require.Equal(t, 30, cfg.Jobs.EmbedCacheMaxAgeDays)
}

func TestLoad_RequiredFields(t *testing.T) {
	cases := []struct {
		name    string
		content string
		errText string
	}{
		{
			name:    "missing port",
			content: `{"jwt_secret": "x", "database": {"dsn": "d"}, "ai": {"provider": "gemini"}}`,
			errText: "port is required",
		},
		{
			name:    "missing jwt secret",
			content: `{"port": 1, "database": {"dsn": "d"}, "ai": {"provider": "gemini"}}`,
			errText: "jwt_secret is required",
		},
		{
			name:    "missing database",
			content: `{"port": 1, "jwt_secret": "x", "ai": {"provider": "gemini"}}`,
			errText: "database.dsn or database.host is required",
		},
		{
			name:    "missing ai provider",
			content: `{"port": 1, "jwt_secret": "x", "database": {"dsn": "d"}}`,
			errText: "ai.provider is required",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			require.ErrorContains(t, err, tc.errText)
		})
	}
}

func TestLoad_BackendValidation(t *testing.T) {
	_, err := Load(writeConfig(t, `{"port": 1, "jwt_secret": "x", "database": {"dsn": "d"}, "ai": {"provider": "gemini"}, "search": {"backend": "openai"}}`))
	require.ErrorContains(t, err, "search.backend openai is disabled")

	cfg, err := Load(writeConfig(t, `{"port": 1, "jwt_secret": "x", "database": {"dsn": "d"}, "ai": {"provider": "gemini"}, "search": {"backend": "openai", "enable_openai": true}}`))
	require.NoError(t, err)
	require.Equal(t, "openai", cfg.Search.Backend)

	_, err = Load(writeConfig(t, `{"port": 1, "jwt_secret": "x", "database": {"dsn": "d"}, "ai": {"provider": "gemini"}, "search": {"backend": "elastic"}}`))
	require.ErrorContains(t, err, "search.backend must be")

	_, err = Load(writeConfig(t, `{"port": 1, "jwt_secret": "x", "database": {"dsn": "d"}, "ai": {"provider": "gemini"}, "search": {"backend": "qdrant"}}`))
	require.ErrorContains(t, err, "search.qdrant.host is required")

	cfg, err = Load(writeConfig(t, `{"port": 1, "jwt_secret": "x", "database": {"dsn": "d"}, "ai": {"provider": "gemini"}, "search": {"backend": "qdrant", "qdrant": {"host": "qdrant.internal"}}}`))
	require.NoError(t, err)
	require.Equal(t, 6334, cfg.Search.Qdrant.Port)
	require.Equal(t, "chunks", cfg.Search.Qdrant.Collection)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
