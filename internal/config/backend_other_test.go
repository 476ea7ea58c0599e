//go:build !darwin

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackend_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cropdoc", "config.json")
	b := newFileBackend(path)

	require.NoError(t, setKey(b, "server.port", "4300"))
	require.NoError(t, setKey(b, "ollama.vision_model", "llava:13b"))

	reloaded := newFileBackend(path)
	port, ok, err := reloaded.GetInt("server.port")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4300, port)

	m, ok, err := reloaded.GetString("ollama.vision_model")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "llava:13b", m)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileBackend_CorruptFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, ok, err := newFileBackend(path).GetString("log.level")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSecretsFile(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	kc := NewKeychain()

	_, err := kc.Get("cropdoc", "weather_api_key")
	assert.Error(t, err)

	require.NoError(t, kc.Set("cropdoc", "weather_api_key", "owm"))
	v, err := kc.Get("cropdoc", "weather_api_key")
	require.NoError(t, err)
	assert.Equal(t, "owm", v)
}

func TestSecretsFile_GeminiKeyList(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "cropdoc"), 0o700))
	require.NoError(t, os.WriteFile(secretsFilePath(),
		[]byte(`{"cropdoc":{"gemini_api_keys":["k1"," k2 ","k3"]}}`), 0o600))

	v, err := NewKeychain().Get(secretService, geminiKeysAccount)
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k2", "k3"}, splitKeys(v))

	cfg, err := loadWith(newFileBackend(filepath.Join(dir, "config.json")), NewKeychain())
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k2", "k3"}, cfg.Gemini.APIKeys)
}

func TestSecretsFile_RejectsBadValue(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "cropdoc"), 0o700))
	require.NoError(t, os.WriteFile(secretsFilePath(), []byte(`{"cropdoc":{"weather_api_key":42}}`), 0o600))

	_, err := NewKeychain().Get(secretService, weatherKeyAccount)
	assert.Error(t, err)
}

func TestSecretsFile_CorruptFileNotOverwritten(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "cropdoc"), 0o700))
	require.NoError(t, os.WriteFile(secretsFilePath(), []byte("{broken"), 0o600))

	err := NewKeychain().Set(secretService, apiTokenAccount, "tok")
	require.Error(t, err)

	data, err := os.ReadFile(secretsFilePath())
	require.NoError(t, err)
	assert.Equal(t, "{broken", string(data))
}

func TestSecretsFile_KeepsOtherEntriesAndPermissions(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	kc := NewKeychain()

	require.NoError(t, kc.Set(secretService, geminiKeysAccount, "g1,g2"))
	require.NoError(t, kc.Set(secretService, weatherKeyAccount, "owm"))

	g, err := kc.Get(secretService, geminiKeysAccount)
	require.NoError(t, err)
	assert.Equal(t, "g1,g2", g)

	info, err := os.Stat(secretsFilePath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
