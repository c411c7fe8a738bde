package providers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
)

// GeminiAdapter implements Google's generateContent shape (spec.md §4.1):
// API key as a URL query parameter, parts-based content, top-level
// systemInstruction, response_mime_type for JSON mode.
type GeminiAdapter struct{}

func (a GeminiAdapter) BuildRequest(cfg Config, req Request) (HTTPRequest, error) {
	if cfg.APIKey == "" {
		return HTTPRequest{}, &ErrMissingSecret{Provider: cfg.Provider}
	}

	base := trimTrailingSlash(cfg.EndpointURL)
	reqURL := fmt.Sprintf("%s/models/%s:generateContent?key=%s", base, cfg.Model, url.QueryEscape(cfg.APIKey))

	parts := make([]map[string]any, 0, len(req.Images)+1)
	for _, img := range req.Images {
		if img.Label != "" {
			parts = append(parts, map[string]any{"text": "[" + img.Label + "]"})
		}
		parts = append(parts, map[string]any{
			"inline_data": map[string]string{
				"mime_type": img.MimeType,
				"data":      base64.StdEncoding.EncodeToString(img.Data),
			},
		})
	}
	if req.Prompt != "" {
		parts = append(parts, map[string]any{"text": req.Prompt})
	}

	generationConfig := map[string]any{
		"maxOutputTokens": req.MaxTokens,
		"temperature":     req.Temperature,
	}
	if req.ResponseFormat == "json_object" {
		generationConfig["response_mime_type"] = "application/json"
	}

	body := map[string]any{
		"contents": []map[string]any{
			{"parts": parts},
		},
		"generationConfig": generationConfig,
	}
	if req.System != "" {
		body["systemInstruction"] = map[string]any{"parts": []map[string]string{{"text": req.System}}}
	}
	mergeModelParams(body, req.ModelParams)

	payload, err := json.Marshal(body)
	if err != nil {
		return HTTPRequest{}, fmt.Errorf("providers: marshal gemini body: %w", err)
	}

	return HTTPRequest{
		Method:  "POST",
		URL:     reqURL,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    payload,
	}, nil
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

func (a GeminiAdapter) ParseResponse(raw []byte) (Response, error) {
	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Response{}, fmt.Errorf("providers: parse gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return Response{}, fmt.Errorf("providers: gemini response has no candidates")
	}
	var text string
	for _, p := range parsed.Candidates[0].Content.Parts {
		text += p.Text
	}
	resp := Response{Content: text}
	if parsed.UsageMetadata.PromptTokenCount > 0 || parsed.UsageMetadata.CandidatesTokenCount > 0 {
		resp.Usage = &Usage{
			PromptTokens:     parsed.UsageMetadata.PromptTokenCount,
			CompletionTokens: parsed.UsageMetadata.CandidatesTokenCount,
		}
	}
	return resp, nil
}
