// Package model builds generation handles for the configured providers. A
// handle is cheap to create; network I/O happens only in Generate.
package model

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/kalambet/cropdoc/internal/imagecodec"
)

type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOllama Provider = "ollama"
)

// Credential is one entry of the ordered credential set.
type Credential struct {
	Provider Provider
	Key      string
	BaseURL  string
	Model    string
}

// Label identifies a credential in logs without exposing the key.
func (c Credential) Label() string {
	switch c.Provider {
	case ProviderOllama:
		return "ollama:" + c.Model
	default:
		return fmt.Sprintf("%s:%s", c.Provider, Redact(c.Key))
	}
}

// Redact keeps the last four characters of a secret.
func Redact(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// Settings are the fixed generation parameters applied to every handle.
// Output is machine-parsed, so sampling stays conservative.
type Settings struct {
	Temperature     float32
	TopP            float32
	TopK            int
	MaxOutputTokens int
	// SafetyThreshold applies to harassment, hate speech, sexually explicit
	// and dangerous content.
	SafetyThreshold string
}

func DefaultSettings() Settings {
	return Settings{
		Temperature:     0.4,
		TopP:            0.95,
		TopK:            32,
		MaxOutputTokens: 2048,
		SafetyThreshold: "BLOCK_ONLY_HIGH",
	}
}

// Request is one generation call: a text prompt plus zero or more images.
type Request struct {
	Prompt string
	Images []imagecodec.Image
}

type Handle interface {
	Generate(ctx context.Context, req Request) (string, error)
}

var ErrEmptyResponse = errors.New("model returned an empty response")

// Factory creates handles for credentials.
type Factory struct {
	settings   Settings
	httpClient *http.Client
}

func NewFactory(settings Settings) *Factory {
	return &Factory{settings: settings, httpClient: &http.Client{}}
}

// WithHTTPClient overrides the transport used by remote handles.
func (f *Factory) WithHTTPClient(c *http.Client) *Factory {
	f.httpClient = c
	return f
}

func (f *Factory) Settings() Settings { return f.settings }

// Create builds a handle for cred. It performs no network I/O.
func (f *Factory) Create(cred Credential) (Handle, error) {
	switch cred.Provider {
	case ProviderGemini:
		return newGeminiHandle(cred, f.settings, f.httpClient)
	case ProviderOllama:
		return newOllamaHandle(cred, f.settings)
	}
	return nil, fmt.Errorf("unknown provider %q", cred.Provider)
}
