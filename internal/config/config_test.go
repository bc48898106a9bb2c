package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	// no .env is fine
	require.NoError(t, Load())

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GOOGLE_REGION=europe-west4\nEVALCLIENT_GEMINI_MODEL=gemini-2.5-pro\n"), 0o600))
	t.Setenv("GOOGLE_REGION", "us-central1")
	t.Setenv("EVALCLIENT_GEMINI_MODEL", "")
	os.Unsetenv("EVALCLIENT_GEMINI_MODEL")

	require.NoError(t, Load())
	assert.Equal(t, "us-central1", GoogleRegion(), "existing variables win over .env")
	assert.Equal(t, "gemini-2.5-pro", GeminiModel())
}

func TestGeminiModel_Default(t *testing.T) {
	t.Setenv("EVALCLIENT_GEMINI_MODEL", "")
	assert.Equal(t, DefaultGeminiModel, GeminiModel())
}
