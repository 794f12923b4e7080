package client

import (
	"context"
	"net/http"
)

// ModelCatalog lists the model names available per provider.
type ModelCatalog struct {
	OpenAI []string `json:"openai"`
	Gemini []string `json:"gemini"`
}

// Models fetches the provider model catalog.
func (c *Client) Models(ctx context.Context) (*ModelCatalog, error) {
	var catalog ModelCatalog
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/settings/models",
		out:    &catalog,
	})
	if err != nil {
		return nil, err
	}
	return &catalog, nil
}

// PromptPair is a system/user prompt template for one provider.
type PromptPair struct {
	SystemPrompt string `json:"system_prompt" yaml:"system_prompt"`
	UserPrompt   string `json:"user_prompt" yaml:"user_prompt"`
}

// Prompts holds the per-provider prompt templates for both job kinds.
type Prompts struct {
	IngestPrompts  map[string]PromptPair `json:"ingest_prompts" yaml:"ingest_prompts"`
	ComparePrompts map[string]PromptPair `json:"compare_prompts" yaml:"compare_prompts"`
}

// GetPrompts fetches the current prompt templates.
func (c *Client) GetPrompts(ctx context.Context) (*Prompts, error) {
	var prompts Prompts
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/prompts",
		out:    &prompts,
	})
	if err != nil {
		return nil, err
	}
	return &prompts, nil
}

// UpdatePrompts replaces the prompt templates and returns the stored set.
func (c *Client) UpdatePrompts(ctx context.Context, prompts *Prompts) (*Prompts, error) {
	body, err := marshalBody(prompts)
	if err != nil {
		return nil, err
	}

	var updated Prompts
	err = c.do(ctx, call{
		method:      http.MethodPut,
		path:        "/prompts",
		body:        body,
		contentType: "application/json",
		out:         &updated,
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ResetPrompts restores the backend's default prompt templates.
func (c *Client) ResetPrompts(ctx context.Context) (*Prompts, error) {
	var prompts Prompts
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/prompts/reset",
		out:    &prompts,
	})
	if err != nil {
		return nil, err
	}
	return &prompts, nil
}
