package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/cropdoc/internal/model"
)

// memBackend is an in-memory ConfigBackend.
type memBackend struct {
	strs map[string]string
	ints map[string]int
}

func newMemBackend() *memBackend {
	return &memBackend{strs: map[string]string{}, ints: map[string]int{}}
}

func (m *memBackend) GetString(key string) (string, bool, error) {
	v, ok := m.strs[key]
	return v, ok, nil
}

func (m *memBackend) GetInt(key string) (int, bool, error) {
	v, ok := m.ints[key]
	return v, ok, nil
}

func (m *memBackend) SetString(key, val string) error { m.strs[key] = val; return nil }
func (m *memBackend) SetInt(key string, val int) error { m.ints[key] = val; return nil }
func (m *memBackend) Delete(key string) error {
	delete(m.strs, key)
	delete(m.ints, key)
	return nil
}

// mockKeychain is an in-memory SecretStore.
type mockKeychain struct {
	values map[string]string
	setErr error
}

func (m *mockKeychain) Get(service, account string) (string, error) {
	v, ok := m.values[service+"/"+account]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (m *mockKeychain) Set(service, account, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[service+"/"+account] = value
	return nil
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
	t.Setenv("CROPDOC_API_TOKEN", "")
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("CROPDOC_GEMINI_API_KEYS", "k1")

	cfg, err := loadWith(newMemBackend(), &mockKeychain{})
	require.NoError(t, err)

	assert.Equal(t, 4100, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.InDelta(t, 0.4, cfg.Gemini.Temperature, 1e-6)
	assert.Equal(t, 8*time.Second, cfg.AttemptTimeout())
	assert.False(t, cfg.Ollama.Enabled)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, "llava", cfg.Ollama.VisionModel)
	assert.Equal(t, 20, cfg.History.Retention)
	assert.Equal(t, "https://api.openweathermap.org", cfg.Weather.BaseURL)
	assert.NotEmpty(t, cfg.Storage.DataDir)
}

func TestBackendValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("CROPDOC_GEMINI_API_KEYS", "k1")

	b := newMemBackend()
	b.ints["server.port"] = 5000
	b.ints["history.retention"] = 50
	b.strs["storage.data_dir"] = "/tmp/cropdoc-test"
	b.strs["ollama.enabled"] = "true"
	b.strs["gemini.temperature"] = "0.2"
	b.strs["rotation.attempt_timeout"] = "3s"
	b.strs["gemini.api_keys"] = "ignored-because-secret"

	cfg, err := loadWith(b, &mockKeychain{})
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, 50, cfg.History.Retention)
	assert.Equal(t, "/tmp/cropdoc-test", cfg.Storage.DataDir)
	assert.True(t, cfg.Ollama.Enabled)
	assert.InDelta(t, 0.2, cfg.Gemini.Temperature, 1e-9)
	assert.Equal(t, 3*time.Second, cfg.AttemptTimeout())
	assert.Equal(t, []string{"k1"}, cfg.Gemini.APIKeys)
}

func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("CROPDOC_GEMINI_API_KEYS", " k1 , ,k2,k3 ")
	t.Setenv("CROPDOC_SERVER_PORT", "6000")
	t.Setenv("CROPDOC_HISTORY_RETENTION", "not-a-number")

	b := newMemBackend()
	b.ints["server.port"] = 5000

	cfg, err := loadWith(b, &mockKeychain{})
	require.NoError(t, err)

	assert.Equal(t, []string{"k1", "k2", "k3"}, cfg.Gemini.APIKeys)
	assert.Equal(t, 6000, cfg.Server.Port)
	assert.Equal(t, 20, cfg.History.Retention, "unparseable env keeps the default")
}

func TestMissingCredentials(t *testing.T) {
	clearEnv(t)

	_, err := loadWith(newMemBackend(), &mockKeychain{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required config")
}

func TestOllamaOnlyIsEnough(t *testing.T) {
	clearEnv(t)
	t.Setenv("CROPDOC_OLLAMA_ENABLED", "true")

	cfg, err := loadWith(newMemBackend(), &mockKeychain{})
	require.NoError(t, err)
	creds := cfg.Credentials()
	require.Len(t, creds, 1)
	assert.Equal(t, model.ProviderOllama, creds[0].Provider)
}

func TestKeychainFallback(t *testing.T) {
	clearEnv(t)
	kc := &mockKeychain{values: map[string]string{
		"cropdoc/gemini_api_keys": "kc1,kc2",
		"cropdoc/weather_api_key": "owm-key\n",
	}}

	cfg, err := loadWith(newMemBackend(), kc)
	require.NoError(t, err)
	assert.Equal(t, []string{"kc1", "kc2"}, cfg.Gemini.APIKeys)
	assert.Equal(t, "owm-key", cfg.Weather.APIKey)
}

func TestCredentialsOrder(t *testing.T) {
	cfg := defaults()
	cfg.Gemini.APIKeys = []string{"a", "b"}
	cfg.Ollama.Enabled = true

	creds := cfg.Credentials()
	require.Len(t, creds, 3)
	assert.Equal(t, model.Credential{Provider: model.ProviderGemini, Key: "a", Model: "gemini-2.5-flash"}, creds[0])
	assert.Equal(t, "b", creds[1].Key)
	assert.Equal(t, model.ProviderOllama, creds[2].Provider)
	assert.Equal(t, "llava", creds[2].Model)
	assert.Equal(t, "http://localhost:11434", creds[2].BaseURL)
}

func TestModelSettings(t *testing.T) {
	cfg := defaults()
	cfg.Gemini.Temperature = 0.1
	assert.InDelta(t, 0.1, cfg.ModelSettings().Temperature, 1e-6)

	cfg.Gemini.Temperature = 9
	assert.Equal(t, model.DefaultSettings().Temperature, cfg.ModelSettings().Temperature)
}

func TestAttemptTimeoutInvalid(t *testing.T) {
	cfg := defaults()
	cfg.Rotation.AttemptTimeout = "soon"
	assert.Equal(t, 8*time.Second, cfg.AttemptTimeout())
	cfg.Rotation.AttemptTimeout = "-1s"
	assert.Equal(t, 8*time.Second, cfg.AttemptTimeout())
}

func TestShowAllHidesSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Gemini.APIKeys = []string{"super-secret"}
	cfg.Weather.APIKey = "owm-secret"

	for _, k := range ShowAll(cfg) {
		assert.NotContains(t, k.Value, "secret", k.Key)
		assert.NotEqual(t, "gemini.api_keys", k.Key)
		assert.NotEqual(t, "weather.api_key", k.Key)
	}
	assert.Contains(t, ValidKeys(), "history.retention")
	assert.NotContains(t, ValidKeys(), "gemini.api_keys")
}

func TestSetKey(t *testing.T) {
	b := newMemBackend()

	require.NoError(t, setKey(b, "server.port", "4200"))
	assert.Equal(t, 4200, b.ints["server.port"])

	require.NoError(t, setKey(b, "ollama.enabled", "1"))
	assert.Equal(t, "true", b.strs["ollama.enabled"])

	require.NoError(t, setKey(b, "gemini.temperature", "0.3"))
	assert.Equal(t, "0.3", b.strs["gemini.temperature"])

	assert.Error(t, setKey(b, "server.port", "abc"))
	assert.Error(t, setKey(b, "ollama.enabled", "maybe"))
	assert.Error(t, setKey(b, "gemini.temperature", "warm"))
	assert.ErrorContains(t, setKey(b, "gemini.api_keys", "k"), "cannot set secret")
	assert.ErrorContains(t, setKey(b, "nope", "x"), "unknown config key")
}

func TestGetAPIToken(t *testing.T) {
	t.Setenv("CROPDOC_API_TOKEN", "")
	kc := &mockKeychain{}

	tok, err := GetAPIToken(kc)
	require.NoError(t, err)
	assert.Len(t, tok, 32)

	again, err := GetAPIToken(kc)
	require.NoError(t, err)
	assert.Equal(t, tok, again, "generated once, then read back")

	t.Setenv("CROPDOC_API_TOKEN", "from-env")
	tok, err = GetAPIToken(kc)
	require.NoError(t, err)
	assert.Equal(t, "from-env", tok)
}

func TestGetAPIToken_StoreFailure(t *testing.T) {
	t.Setenv("CROPDOC_API_TOKEN", "")
	_, err := GetAPIToken(&mockKeychain{setErr: errors.New("locked")})
	assert.ErrorContains(t, err, "storing API token")
}
