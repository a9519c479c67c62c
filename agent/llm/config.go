package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tablewise/concierge/agent/contract"
	openrouterx "github.com/tablewise/concierge/pkg/openrouter"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	// HistoryWindow bounds how many past turns are replayed per model call.
	HistoryWindow int `envconfig:"HISTORY_WINDOW" split_words:"true" default:"12"`

	// The reservation flow may run a stricter model than the single-shot
	// domain agents.
	ReservationModel       string  `envconfig:"RESERVATION_MODEL" split_words:"true"`
	SpecialistModel        string  `envconfig:"SPECIALIST_MODEL" split_words:"true"`
	ReservationTemperature float32 `envconfig:"RESERVATION_TEMPERATURE" split_words:"true" default:"-1"`
	SpecialistTemperature  float32 `envconfig:"SPECIALIST_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	if c.HistoryWindow <= 0 {
		return fmt.Errorf("%w: history window must be positive", contractx.ErrValidation)
	}
	return nil
}

// OpenRouterFor resolves the model configuration for one agent, applying the
// reservation/specialist overrides when set.
func (c Config) OpenRouterFor(agentType contractx.AgentType) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	if agentType == contractx.AgentReservation {
		if v := strings.TrimSpace(c.ReservationModel); v != "" {
			modelName = v
		}
		if c.ReservationTemperature >= 0 {
			temp = c.ReservationTemperature
		}
	} else {
		if v := strings.TrimSpace(c.SpecialistModel); v != "" {
			modelName = v
		}
		if c.SpecialistTemperature >= 0 {
			temp = c.SpecialistTemperature
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
