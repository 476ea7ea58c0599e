package model

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/kalambet/cropdoc/internal/ollama"
)

const defaultOllamaURL = "http://localhost:11434"

type ollamaHandle struct {
	client *ollama.Client
	model  string
	opts   *ollama.Options
}

func newOllamaHandle(cred Credential, s Settings) (*ollamaHandle, error) {
	if cred.Model == "" {
		return nil, errors.New("ollama credential has no model")
	}
	base := cred.BaseURL
	if base == "" {
		base = defaultOllamaURL
	}
	return &ollamaHandle{
		client: ollama.New(base),
		model:  cred.Model,
		opts: &ollama.Options{
			Temperature: s.Temperature,
			TopP:        s.TopP,
			TopK:        s.TopK,
			NumPredict:  s.MaxOutputTokens,
		},
	}, nil
}

func (h *ollamaHandle) Generate(ctx context.Context, req Request) (string, error) {
	images := make([]string, 0, len(req.Images))
	for _, img := range req.Images {
		images = append(images, base64.StdEncoding.EncodeToString(img.Data))
	}
	out, err := h.client.Chat(ctx, h.model, []ollama.Message{
		{Role: "user", Content: req.Prompt, Images: images},
	}, h.opts, true)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}
