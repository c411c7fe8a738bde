package providers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// AnthropicAdapter implements the Messages API shape (spec.md §4.1):
// x-api-key + anthropic-version header, top-level system field, JSON
// enforced via a prompt-level instruction rather than a response-format flag.
type AnthropicAdapter struct{}

const anthropicVersion = "2023-06-01"

func (a AnthropicAdapter) BuildRequest(cfg Config, req Request) (HTTPRequest, error) {
	if cfg.APIKey == "" {
		return HTTPRequest{}, &ErrMissingSecret{Provider: cfg.Provider}
	}

	base := trimTrailingSlash(cfg.EndpointURL)
	url := base + "/v1/messages"

	content := make([]map[string]any, 0, len(req.Images)+1)
	for _, img := range req.Images {
		if img.Label != "" {
			content = append(content, map[string]any{"type": "text", "text": "[" + img.Label + "]"})
		}
		content = append(content, map[string]any{
			"type": "image",
			"source": map[string]string{
				"type":       "base64",
				"media_type": img.MimeType,
				"data":       base64.StdEncoding.EncodeToString(img.Data),
			},
		})
	}

	prompt := req.Prompt
	if req.ResponseFormat == "json_object" {
		prompt += "\n\nRespond with JSON only, no other text."
	}
	content = append(content, map[string]any{"type": "text", "text": prompt})

	body := map[string]any{
		"model":       cfg.Model,
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
		"messages": []map[string]any{
			{"role": "user", "content": content},
		},
	}
	if req.System != "" {
		body["system"] = req.System
	}
	mergeModelParams(body, req.ModelParams)

	payload, err := json.Marshal(body)
	if err != nil {
		return HTTPRequest{}, fmt.Errorf("providers: marshal anthropic body: %w", err)
	}

	headers := map[string]string{
		"Content-Type":      "application/json",
		"x-api-key":         cfg.APIKey,
		"anthropic-version": anthropicVersion,
	}

	return HTTPRequest{Method: "POST", URL: url, Headers: headers, Body: payload}, nil
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (a AnthropicAdapter) ParseResponse(raw []byte) (Response, error) {
	var parsed anthropicResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Response{}, fmt.Errorf("providers: parse anthropic response: %w", err)
	}
	var text string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	resp := Response{Content: text}
	if parsed.Usage.InputTokens > 0 || parsed.Usage.OutputTokens > 0 {
		resp.Usage = &Usage{PromptTokens: parsed.Usage.InputTokens, CompletionTokens: parsed.Usage.OutputTokens}
	}
	return resp, nil
}
