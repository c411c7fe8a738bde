package config

// Validator runs a fixed, dependency-ordered sequence of per-concern checks
// against a RuntimeConfig, in the teacher's hand-written style
// (pkg/config/validator.go): one validateX method per concern, fail-fast
// ValidateAll. go-playground/validator/v10 is never imported here — the
// teacher itself only pulls it in transitively (via gin) and never calls it.
type Validator struct {
	cfg *RuntimeConfig
}

func NewValidator(cfg *RuntimeConfig) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll runs every check in dependency order, returning the first
// failure encountered.
func (v *Validator) ValidateAll() error {
	checks := []func() error{
		v.validateProvider,
		v.validateEndpoint,
		v.validateSecret,
		v.validateModels,
		v.validateThresholds,
		v.validateRateLimit,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) validateProvider() error {
	if _, ok := knownProviders[v.cfg.Provider]; !ok {
		return &ValidationError{Field: "provider", Msg: "unknown provider " + string(v.cfg.Provider)}
	}
	return nil
}

func (v *Validator) validateEndpoint() error {
	if v.cfg.Provider == ProviderOllama || v.cfg.Provider == ProviderOllamaCloud || v.cfg.Provider == ProviderCustom {
		if v.cfg.EndpointURL == "" {
			return &ValidationError{Field: "endpointURL", Msg: "required for provider " + string(v.cfg.Provider)}
		}
	}
	return nil
}

func (v *Validator) validateSecret() error {
	// Local Ollama may run without a key; every other provider requires one.
	if v.cfg.Provider == ProviderOllama {
		return nil
	}
	if v.cfg.ProviderSecrets[v.cfg.Provider] == "" {
		return &ValidationError{Field: "providerSecrets", Msg: "missing secret for provider " + string(v.cfg.Provider)}
	}
	return nil
}

func (v *Validator) validateModels() error {
	if v.cfg.VisionModel == "" {
		return &ValidationError{Field: "visionModel", Msg: "required"}
	}
	if v.cfg.TwoPassEnabled && v.cfg.VerificationModel == "" {
		return &ValidationError{Field: "verificationModel", Msg: "required when two-pass verification is enabled"}
	}
	return nil
}

func (v *Validator) validateThresholds() error {
	for name, val := range map[string]float64{
		"autoApproveThreshold":        v.cfg.AutoApproveThreshold,
		"autonomousApprovalThreshold": v.cfg.AutonomousApprovalThreshold,
		"skipParseThreshold":          v.cfg.SkipParseThreshold,
	} {
		if val < 0 || val > 100 {
			return &ValidationError{Field: name, Msg: "must be in [0,100]"}
		}
	}
	return nil
}

func (v *Validator) validateRateLimit() error {
	if v.cfg.RateLimitRPM < 0 {
		return &ValidationError{Field: "rateLimitRPM", Msg: "must be >= 0"}
	}
	return nil
}
