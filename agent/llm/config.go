package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
	openrouterx "github.com/tanpawarit/ai-suite-runtime/pkg/openrouter"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"1200"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.3"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	TriageModel           string  `envconfig:"TRIAGE_MODEL" split_words:"true"`
	ResolutionModel       string  `envconfig:"RESOLUTION_MODEL" split_words:"true"`
	TriageTemperature     float32 `envconfig:"TRIAGE_TEMPERATURE" split_words:"true" default:"-1"`
	ResolutionTemperature float32 `envconfig:"RESOLUTION_TEMPERATURE" split_words:"true" default:"-1"`

	EmbeddingModel   string `envconfig:"EMBEDDING_MODEL" split_words:"true"`
	EmbeddingBaseURL string `envconfig:"EMBEDDING_BASE_URL" split_words:"true"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: llm api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// OpenRouterFor applies the per-agent model and temperature overrides.
func (c Config) OpenRouterFor(agentID contractx.AgentID) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	switch agentID {
	case contractx.AgentTriage:
		if v := strings.TrimSpace(c.TriageModel); v != "" {
			modelName = v
		}
		if c.TriageTemperature >= 0 {
			temp = c.TriageTemperature
		}
	case contractx.AgentResolution:
		if v := strings.TrimSpace(c.ResolutionModel); v != "" {
			modelName = v
		}
		if c.ResolutionTemperature >= 0 {
			temp = c.ResolutionTemperature
		}
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

// EmbeddingClientConfig returns the client settings for embedding calls, or
// false when no embedding model is configured.
func (c Config) EmbeddingClientConfig() (openrouterx.Config, bool) {
	if strings.TrimSpace(c.EmbeddingModel) == "" {
		return openrouterx.Config{}, false
	}
	conf := c.OpenRouterFor("")
	conf.Model = strings.TrimSpace(c.EmbeddingModel)
	if v := strings.TrimSpace(c.EmbeddingBaseURL); v != "" {
		conf.BaseURL = v
	}
	return conf, true
}
