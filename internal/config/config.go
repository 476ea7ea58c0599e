package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kalambet/cropdoc/internal/model"
)

// secretService is the secret-store service name for every cropdoc secret.
const secretService = "cropdoc"

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Storage  StorageConfig
	Gemini   GeminiConfig
	Rotation RotationConfig
	Ollama   OllamaConfig
	History  HistoryConfig
	Weather  WeatherConfig
}

type ServerConfig struct {
	Port int
}

type LogConfig struct {
	Level string
}

type StorageConfig struct {
	DataDir string
}

type GeminiConfig struct {
	APIKeys     []string
	Model       string
	Temperature float64
}

type RotationConfig struct {
	AttemptTimeout string
}

type OllamaConfig struct {
	Enabled     bool
	BaseURL     string
	VisionModel string
}

type HistoryConfig struct {
	Retention int
}

type WeatherConfig struct {
	APIKey  string
	BaseURL string
}

const defaultAttemptTimeout = 8 * time.Second

func defaults() Config {
	settings := model.DefaultSettings()
	return Config{
		Server:   ServerConfig{Port: 4100},
		Log:      LogConfig{Level: "info"},
		Storage:  StorageConfig{DataDir: defaultDataDir()},
		Gemini:   GeminiConfig{Model: "gemini-2.5-flash", Temperature: float64(settings.Temperature)},
		Rotation: RotationConfig{AttemptTimeout: defaultAttemptTimeout.String()},
		Ollama: OllamaConfig{
			BaseURL:     "http://localhost:11434",
			VisionModel: "llava",
		},
		History: HistoryConfig{Retention: 20},
		Weather: WeatherConfig{BaseURL: "https://api.openweathermap.org"},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.cropdoc.app) and secrets
// fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/cropdoc/config.json
// and secrets come from environment variables or
// $XDG_DATA_HOME/cropdoc/secrets.json.
//
// Environment variables (CROPDOC_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), NewKeychain())
}

func loadWith(b ConfigBackend, kc SecretStore) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if len(cfg.Gemini.APIKeys) == 0 {
		if keys, err := kc.Get(secretService, geminiKeysAccount); err == nil {
			cfg.Gemini.APIKeys = splitKeys(keys)
		}
	}
	if cfg.Weather.APIKey == "" {
		if key, err := kc.Get(secretService, weatherKeyAccount); err == nil {
			cfg.Weather.APIKey = strings.TrimSpace(key)
		}
	}

	if len(cfg.Credentials()) == 0 {
		msg := "missing required config: at least one Gemini API key. " +
			geminiKeyHint() +
			", or enable the local model with CROPDOC_OLLAMA_ENABLED=true"
		return Config{}, fmt.Errorf("%s", msg)
	}

	return cfg, nil
}

// Credentials returns the ordered credential set: every Gemini key in the
// configured order, then the local model when enabled.
func (c Config) Credentials() []model.Credential {
	creds := make([]model.Credential, 0, len(c.Gemini.APIKeys)+1)
	for _, k := range c.Gemini.APIKeys {
		creds = append(creds, model.Credential{
			Provider: model.ProviderGemini,
			Key:      k,
			Model:    c.Gemini.Model,
		})
	}
	if c.Ollama.Enabled && c.Ollama.VisionModel != "" {
		creds = append(creds, model.Credential{
			Provider: model.ProviderOllama,
			BaseURL:  c.Ollama.BaseURL,
			Model:    c.Ollama.VisionModel,
		})
	}
	return creds
}

// ModelSettings returns the generation settings with configured overrides.
func (c Config) ModelSettings() model.Settings {
	s := model.DefaultSettings()
	if c.Gemini.Temperature >= 0 && c.Gemini.Temperature <= 2 {
		s.Temperature = float32(c.Gemini.Temperature)
	}
	return s
}

// AttemptTimeout parses rotation.attempt_timeout, falling back to the
// default on an invalid or non-positive value.
func (c Config) AttemptTimeout() time.Duration {
	d, err := time.ParseDuration(c.Rotation.AttemptTimeout)
	if err != nil || d <= 0 {
		return defaultAttemptTimeout
	}
	return d
}
