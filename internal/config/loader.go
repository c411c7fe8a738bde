package config

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/artisanclarinets/smartupload/internal/store"
)

// settingsKeys mirrors spec.md §6's abridged key list.
const (
	keyProvider           = "llm_provider"
	keyEndpointURL        = "llm_endpoint_url"
	keyVisionModel        = "llm_vision_model"
	keyVerificationMdl    = "llm_verification_model"
	keyAdjudicatorMdl     = "llm_adjudicator_model"
	keyTwoPassEnabled     = "llm_two_pass_enabled"
	keyAutoApprove        = "llm_auto_approve_threshold"
	keyAutonomousApprov   = "llm_autonomous_approval_threshold"
	keySkipParse          = "llm_skip_parse_threshold"
	keyRateLimitRPM       = "llm_rate_limit_rpm"
	keyVisionParams       = "vision_model_params"
	keyVerificationParams = "verification_model_params"
	keyAdjudicatorParams  = "adjudicator_model_params"
)

var secretKeys = map[Provider]string{
	ProviderOpenAI:      "llm_openai_api_key",
	ProviderAnthropic:    "llm_anthropic_api_key",
	ProviderOpenRouter:   "llm_openrouter_api_key",
	ProviderGemini:       "llm_gemini_api_key",
	ProviderMistral:      "llm_mistral_api_key",
	ProviderGroq:         "llm_groq_api_key",
	ProviderOllamaCloud:  "llm_ollama_cloud_api_key",
	ProviderCustom:       "llm_custom_api_key",
}

// providerDefaultEndpoints are used when neither the settings store nor the
// environment supplies an override.
var providerDefaultEndpoints = map[Provider]string{
	ProviderOpenAI:     "https://api.openai.com",
	ProviderOpenRouter: "https://openrouter.ai/api",
	ProviderOllama:     "http://localhost:11434",
	ProviderAnthropic:  "https://api.anthropic.com",
	ProviderGemini:     "https://generativelanguage.googleapis.com",
	ProviderMistral:    "https://api.mistral.ai",
	ProviderGroq:       "https://api.groq.com/openai",
}

// Initialize resolves a RuntimeConfig from the settings store, falling back
// to environment variables and then provider defaults, and validates the
// result. This is the primary entry point, mirroring the teacher's
// Initialize(ctx, ...) -> load -> validate shape.
func Initialize(ctx context.Context, settings store.SettingsStore) (*RuntimeConfig, error) {
	log := slog.With("component", "config")
	log.Info("initializing runtime config")

	cfg, err := load(ctx, settings)
	if err != nil {
		return nil, err
	}

	if err := NewValidator(cfg).ValidateAll(); err != nil {
		return nil, err
	}

	log.Info("runtime config initialized", "provider", cfg.Provider, "visionModel", cfg.VisionModel)
	return cfg, nil
}

type source struct {
	ctx      context.Context
	settings store.SettingsStore
}

// resolve looks up key in the settings store first, then the environment
// (upper-cased), returning fallback if neither has a value.
func (s source) resolve(key, envKey, fallback string) string {
	if s.settings != nil {
		if v, ok, err := s.settings.Get(s.ctx, key); err == nil && ok && v != "" {
			return v
		}
	}
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return fallback
}

func (s source) resolveFloat(key, envKey string, fallback float64) float64 {
	raw := s.resolve(key, envKey, "")
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return f
}

func (s source) resolveInt(key, envKey string, fallback int) int {
	raw := s.resolve(key, envKey, "")
	if raw == "" {
		return fallback
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return i
}

func (s source) resolveBool(key, envKey string, fallback bool) bool {
	raw := s.resolve(key, envKey, "")
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return b
}

// parseParams parses a JSON object leniently per spec.md §4.3: empty string
// yields an empty map, malformed JSON yields an empty map with no error.
func parseParams(raw string) map[string]any {
	out := map[string]any{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]any{}
	}
	return out
}

func load(ctx context.Context, settings store.SettingsStore) (*RuntimeConfig, error) {
	s := source{ctx: ctx, settings: settings}

	provider := Provider(s.resolve(keyProvider, "LLM_PROVIDER", string(ProviderOpenAI)))

	endpoint := s.resolve(keyEndpointURL, "LLM_ENDPOINT_URL", providerDefaultEndpoints[provider])

	secrets := map[Provider]string{}
	for p, key := range secretKeys {
		envKey := "LLM_" + strings.ToUpper(string(p)) + "_API_KEY"
		if v := s.resolve(key, envKey, ""); v != "" {
			secrets[p] = v
		}
	}

	cfg := &RuntimeConfig{
		Provider:    provider,
		EndpointURL: endpoint,

		VisionModel:       s.resolve(keyVisionModel, "LLM_VISION_MODEL", ""),
		VerificationModel: s.resolve(keyVerificationMdl, "LLM_VERIFICATION_MODEL", ""),
		AdjudicatorModel:  s.resolve(keyAdjudicatorMdl, "LLM_ADJUDICATOR_MODEL", ""),

		ProviderSecrets: secrets,

		AutoApproveThreshold:        s.resolveFloat(keyAutoApprove, "LLM_AUTO_APPROVE_THRESHOLD", 90),
		AutonomousApprovalThreshold: s.resolveFloat(keyAutonomousApprov, "LLM_AUTONOMOUS_APPROVAL_THRESHOLD", 95),
		SkipParseThreshold:          s.resolveFloat(keySkipParse, "LLM_SKIP_PARSE_THRESHOLD", 60),

		TwoPassEnabled: s.resolveBool(keyTwoPassEnabled, "LLM_TWO_PASS_ENABLED", true),
		AutonomousMode: s.resolveBool("llm_autonomous_mode", "LLM_AUTONOMOUS_MODE", false),

		RateLimitRPM: s.resolveInt(keyRateLimitRPM, "LLM_RATE_LIMIT_RPM", 15),

		VisionModelParams:       parseParams(s.resolve(keyVisionParams, "VISION_MODEL_PARAMS", "")),
		VerificationModelParams: parseParams(s.resolve(keyVerificationParams, "VERIFICATION_MODEL_PARAMS", "")),
		AdjudicatorModelParams:  parseParams(s.resolve(keyAdjudicatorParams, "ADJUDICATOR_MODEL_PARAMS", "")),

		PromptOverrides: map[string]string{},
	}

	return cfg, nil
}
