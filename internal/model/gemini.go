package model

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

type geminiHandle struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

func newGeminiHandle(cred Credential, s Settings, httpClient *http.Client) (*geminiHandle, error) {
	if strings.TrimSpace(cred.Key) == "" {
		return nil, errors.New("gemini credential has an empty key")
	}
	cc := &genai.ClientConfig{
		APIKey:     cred.Key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cred.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cred.BaseURL}
	}
	// NewClient only validates configuration for the Gemini API backend.
	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := cred.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &geminiHandle{client: client, model: model, config: generateConfig(s)}, nil
}

func generateConfig(s Settings) *genai.GenerateContentConfig {
	threshold := genai.HarmBlockThreshold(s.SafetyThreshold)
	if threshold == "" {
		threshold = genai.HarmBlockThresholdBlockOnlyHigh
	}
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	safety := make([]*genai.SafetySetting, len(categories))
	for i, c := range categories {
		safety[i] = &genai.SafetySetting{Category: c, Threshold: threshold}
	}
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(s.Temperature),
		TopP:            genai.Ptr(s.TopP),
		TopK:            genai.Ptr(float32(s.TopK)),
		MaxOutputTokens: int32(s.MaxOutputTokens),
		SafetySettings:  safety,
	}
}

func (h *geminiHandle) Generate(ctx context.Context, req Request) (string, error) {
	parts := make([]*genai.Part, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: img.MIMEType, Data: img.Data},
		})
	}
	parts = append(parts, &genai.Part{Text: req.Prompt})
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	resp, err := h.client.Models.GenerateContent(ctx, h.model, contents, h.config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil {
		return "", ErrEmptyResponse
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
