package service

import (
	"go.uber.org/zap"

	"pulse-cli/internal/config"
	"pulse-cli/internal/gemini"
	"pulse-cli/internal/search"
)

// NewBackend builds the search service for cfg. The Gemini client comes
// from h, so it is only rebuilt when the key, endpoint or rate changes.
func NewBackend(h *gemini.Holder, cfg *config.Config, log *zap.Logger) (*search.Service, error) {
	client, err := h.Client(gemini.Options{
		APIKey:            cfg.EffectiveAPIKey(),
		BaseURL:           cfg.Endpoint(),
		RequestsPerSecond: cfg.RPS(),
		Logger:            log,
	})
	if err != nil {
		return nil, err
	}
	return search.NewService(client, search.Options{
		Model:          cfg.ModelName(),
		ReasoningModel: cfg.ReasoningModelName(),
		Logger:         log,
	}), nil
}

// LoadFilters returns the profile's stored default filters. Invalid
// entries are reported but the valid ones still apply.
func LoadFilters(cfg *config.Config) (search.Filters, error) {
	if cfg == nil {
		return search.DefaultFilters(), nil
	}
	return search.FromMap(cfg.Filters)
}
