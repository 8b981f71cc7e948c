package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStoreBackend(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		dbURL   string
		want    string
	}{
		{"explicit memory", "memory", "postgres://x", StoreBackendMemory},
		{"explicit postgres", "postgres", "", StoreBackendPostgres},
		{"default with database", "", "postgres://x", StoreBackendPostgres},
		{"default without database", "", "", StoreBackendMemory},
		{"unknown falls back", "redis", "", StoreBackendMemory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("STORE_BACKEND", tt.backend)
			t.Setenv("DATABASE_URL", tt.dbURL)
			assert.Equal(t, tt.want, StoreBackend())
		})
	}
}

func TestReplyWaitTimeout(t *testing.T) {
	t.Setenv("REPLY_WAIT_TIMEOUT_MS", "")
	assert.Equal(t, 30*time.Second, ReplyWaitTimeout())

	t.Setenv("REPLY_WAIT_TIMEOUT_MS", "250")
	assert.Equal(t, 250*time.Millisecond, ReplyWaitTimeout())

	t.Setenv("REPLY_WAIT_TIMEOUT_MS", "-1")
	assert.Equal(t, 30*time.Second, ReplyWaitTimeout())
}

func TestDatabaseMaxConns(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "")
	t.Setenv("DISPATCH_WORKERS", "")
	assert.Equal(t, int32(20), DatabaseMaxConns())

	t.Setenv("DISPATCH_WORKERS", "2")
	assert.Equal(t, int32(8), DatabaseMaxConns())

	t.Setenv("DB_MAX_CONNS", "50")
	assert.Equal(t, int32(50), DatabaseMaxConns())

	t.Setenv("DB_MAX_CONNS", "-1")
	assert.Equal(t, int32(8), DatabaseMaxConns())
}

func TestLLMAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "openai-key")
	t.Setenv("ANTHROPIC_API_KEY", "anthropic-key")

	t.Setenv("LLM_PROVIDER", "")
	assert.Equal(t, "openai-key", LLMAPIKey())

	t.Setenv("LLM_PROVIDER", "anthropic")
	assert.Equal(t, "anthropic-key", LLMAPIKey())

	t.Setenv("LLM_PROVIDER", "mock")
	assert.Empty(t, LLMAPIKey())
}

func TestLoadSecretSidecar(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, "test.env")
	if err := os.WriteFile(env, []byte("DISPATCH_WORKERS=3\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(env+".secret", []byte("API_KEY=s3cret\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DIALOGREPLY_ENV", env)
	t.Setenv("DISPATCH_WORKERS", "")
	t.Setenv("API_KEY", "")
	os.Unsetenv("DISPATCH_WORKERS")
	os.Unsetenv("API_KEY")

	assert.NoError(t, Load())
	assert.Equal(t, 3, DispatchWorkers())
	assert.Equal(t, "s3cret", APIKey())
}
