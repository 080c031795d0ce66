package service

import (
	"context"
	"fmt"

	"github.com/fadilmartias/cv-evaluator/internal/config"
	"github.com/fadilmartias/cv-evaluator/internal/invoker"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const openRouterURL = "https://openrouter.ai/api/v1/chat/completions"

// OpenRouterService is an alternate oracle speaking the OpenAI chat
// completion dialect. Selected with ORACLE_PROVIDER=openrouter.
type OpenRouterService struct {
	client *resty.Client
	apiKey string
	model  string
}

func NewOpenRouterService() (*OpenRouterService, error) {
	cfg := config.LoadOracleConfig()
	if cfg.OpenRouterAPIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY not set")
	}
	return &OpenRouterService{
		client: resty.New(),
		apiKey: cfg.OpenRouterAPIKey,
		model:  cfg.OpenRouterModel,
	}, nil
}

func (s *OpenRouterService) GenerateContent(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+s.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"model": s.model,
			"messages": []map[string]string{
				{"role": "system", "content": "You are an AI evaluator for job applications."},
				{"role": "user", "content": prompt},
			},
		}).
		Post(openRouterURL)
	if err != nil {
		return "", fmt.Errorf("openrouter request: %w", err)
	}

	body := resp.String()
	if code := resp.StatusCode(); code != 200 {
		statusErr := fmt.Errorf("openrouter status %d: %s", code, gjson.Get(body, "error.message").String())
		if code == 429 || code >= 500 {
			return "", invoker.Transient(statusErr)
		}
		return "", invoker.Permanent(statusErr)
	}

	text := gjson.Get(body, "choices.0.message.content").String()
	if text == "" {
		return "", fmt.Errorf("no content in openrouter response")
	}
	return text, nil
}
