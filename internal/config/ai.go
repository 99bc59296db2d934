package config

import "time"

// AIConfig holds question generation settings
type AIConfig struct {
	APIKey        string `mapstructure:"api_key" json:"-"` // Never serialize
	PrimaryModel  string `mapstructure:"primary_model" json:"primaryModel"`
	FallbackModel string `mapstructure:"fallback_model" json:"fallbackModel"`
	TimeoutMS     int    `mapstructure:"timeout_ms" json:"timeoutMs"`
}

// IsEnabled returns true if the AI API is configured
func (c *AIConfig) IsEnabled() bool {
	return c.APIKey != ""
}

// Models returns the models to try in order, skipping blanks and repeats.
func (c *AIConfig) Models() []string {
	var models []string
	for _, m := range []string{c.PrimaryModel, c.FallbackModel} {
		if m != "" && (len(models) == 0 || models[0] != m) {
			models = append(models, m)
		}
	}
	return models
}

// Timeout returns the per-call timeout
func (c *AIConfig) Timeout() time.Duration {
	if c.TimeoutMS <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutMS) * time.Millisecond
}
