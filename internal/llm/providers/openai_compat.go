package providers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// OpenAICompatAdapter implements the shared OpenAI chat-completions shape
// used by OpenAI, OpenRouter, Ollama, Ollama-Cloud, Mistral, Groq, and
// Custom endpoints (spec.md §4.1 table).
type OpenAICompatAdapter struct {
	// RequireKey is false for Ollama, where a local deployment may have no
	// key at all; Authorization is simply omitted in that case.
	RequireKey bool
	// OpenRouterHeaders adds HTTP-Referer/X-Title when true.
	OpenRouterHeaders bool
	// AutoAddV1 appends "/v1" to the endpoint if missing (Ollama-Cloud).
	AutoAddV1 bool
}

func (a OpenAICompatAdapter) BuildRequest(cfg Config, req Request) (HTTPRequest, error) {
	if a.RequireKey && cfg.APIKey == "" {
		return HTTPRequest{}, &ErrMissingSecret{Provider: cfg.Provider}
	}
	if cfg.EndpointURL == "" {
		return HTTPRequest{}, &ErrMissingEndpoint{Provider: cfg.Provider}
	}

	base := trimTrailingSlash(cfg.EndpointURL)
	if a.AutoAddV1 && !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	url := base + "/chat/completions"

	content := make([]map[string]any, 0, len(req.Images)+len(req.Documents)+1)
	for _, img := range req.Images {
		if img.Label != "" {
			content = append(content, map[string]any{"type": "text", "text": "[" + img.Label + "]"})
		}
		content = append(content, map[string]any{
			"type": "image_url",
			"image_url": map[string]string{
				"url": "data:" + img.MimeType + ";base64," + base64.StdEncoding.EncodeToString(img.Data),
			},
		})
	}
	if req.Prompt != "" {
		content = append(content, map[string]any{"type": "text", "text": req.Prompt})
	}

	messages := []map[string]any{}
	if req.System != "" {
		messages = append(messages, map[string]any{"role": "system", "content": req.System})
	}
	messages = append(messages, map[string]any{"role": "user", "content": content})

	body := map[string]any{
		"model":       cfg.Model,
		"messages":    messages,
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
	}
	if req.ResponseFormat == "json_object" {
		body["response_format"] = map[string]string{"type": "json_object"}
	}
	mergeModelParams(body, req.ModelParams)

	payload, err := json.Marshal(body)
	if err != nil {
		return HTTPRequest{}, fmt.Errorf("providers: marshal openai-compat body: %w", err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}
	if a.OpenRouterHeaders {
		headers["HTTP-Referer"] = "https://smartupload.internal"
		headers["X-Title"] = "Smart Upload"
	}

	return HTTPRequest{Method: "POST", URL: url, Headers: headers, Body: payload}, nil
}

type openAICompatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (a OpenAICompatAdapter) ParseResponse(raw []byte) (Response, error) {
	var parsed openAICompatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Response{}, fmt.Errorf("providers: parse openai-compat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return Response{}, fmt.Errorf("providers: openai-compat response has no choices")
	}
	resp := Response{Content: parsed.Choices[0].Message.Content}
	if parsed.Usage.PromptTokens > 0 || parsed.Usage.CompletionTokens > 0 {
		resp.Usage = &Usage{PromptTokens: parsed.Usage.PromptTokens, CompletionTokens: parsed.Usage.CompletionTokens}
	}
	return resp, nil
}
