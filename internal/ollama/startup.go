package ollama

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// EnsureVisionModel checks that Ollama is running and that model is present,
// pulling it when missing. Callers treat an error as "local provider unavailable".
func EnsureVisionModel(ctx context.Context, c *Client, model string) error {
	if !c.IsRunning(ctx) {
		return fmt.Errorf("ollama is not running at %s", c.baseURL)
	}
	if c.HasModel(ctx, model) {
		log.Info().Str("model", model).Msg("ollama vision model ready")
		return nil
	}

	log.Info().Str("model", model).Msg("pulling ollama vision model")
	lastStatus := ""
	err := c.PullModel(ctx, model, func(p pullProgress) {
		if p.Status == lastStatus {
			return
		}
		lastStatus = p.Status
		ev := log.Debug().Str("model", model).Str("status", p.Status)
		if p.Total > 0 {
			ev = ev.Float64("pct", float64(p.Completed)/float64(p.Total)*100)
		}
		ev.Msg("pull progress")
	})
	if err != nil {
		return fmt.Errorf("pulling model %s: %w", model, err)
	}
	log.Info().Str("model", model).Msg("ollama vision model ready")
	return nil
}
