// Package config materializes a typed RuntimeConfig from the settings store,
// falling back to environment variables and then to provider defaults. It
// also produces the provider-scoped adapter config that carries only the
// secret for the selected provider, per spec.md's strict key-isolation rule.
package config

import "github.com/artisanclarinets/smartupload/internal/llm/providers"

// Provider enumerates the supported LLM provider families.
type Provider string

const (
	ProviderOpenAI      Provider = "openai"
	ProviderOpenRouter  Provider = "openrouter"
	ProviderOllama      Provider = "ollama"
	ProviderOllamaCloud Provider = "ollama_cloud"
	ProviderMistral     Provider = "mistral"
	ProviderGroq        Provider = "groq"
	ProviderCustom      Provider = "custom"
	ProviderAnthropic   Provider = "anthropic"
	ProviderGemini      Provider = "gemini"
)

var knownProviders = map[Provider]struct{}{
	ProviderOpenAI: {}, ProviderOpenRouter: {}, ProviderOllama: {}, ProviderOllamaCloud: {},
	ProviderMistral: {}, ProviderGroq: {}, ProviderCustom: {}, ProviderAnthropic: {}, ProviderGemini: {},
}

// RuntimeConfig is the fully resolved configuration consumed by the
// dispatcher and pipeline stage handlers.
type RuntimeConfig struct {
	Provider     Provider
	EndpointURL  string

	VisionModel       string
	VerificationModel string
	AdjudicatorModel  string

	// ProviderSecrets maps every known provider's secret, keyed by Provider.
	// It is resolved once at load time; downstream code must use
	// AdapterConfigFor to get a config scoped to a single provider.
	ProviderSecrets map[Provider]string

	AutoApproveThreshold        float64
	AutonomousApprovalThreshold float64
	SkipParseThreshold          float64

	TwoPassEnabled bool
	AutonomousMode bool

	RateLimitRPM int

	VisionModelParams       map[string]any
	VerificationModelParams map[string]any
	AdjudicatorModelParams  map[string]any

	MaxPagesPerPart  int
	ForbiddenLabels  []string

	PromptOverrides map[string]string
}

// AdapterConfigFor returns a providers.Config carrying only the secret for
// the given provider — never another provider's secret. This is the sole
// point where a multi-provider RuntimeConfig narrows to a single-provider
// adapter config.
func (c *RuntimeConfig) AdapterConfigFor(p Provider) providers.Config {
	return providers.Config{
		Provider:    string(p),
		EndpointURL: c.EndpointURL,
		APIKey:      c.ProviderSecrets[p],
	}
}
