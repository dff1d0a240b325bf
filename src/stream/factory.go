package stream

import (
	"fmt"

	"price-stream/src/helpers"
	"price-stream/src/interfaces"
	"price-stream/src/logger"
	"price-stream/src/models"
)

// -----------------------------------------------------------------------------
// Factory
//
// Backend selection comes from the explicit config struct, never from
// environment or URL sniffing. The session controller calls this once per
// symbol-selection epoch.
// -----------------------------------------------------------------------------

// New builds a fresh stream instance for the configured backend.
func New(cfg *models.MConfig, log *logger.Logger) (interfaces.IPriceStream, error) {
	switch cfg.Stream.Backend {
	case "mock":
		return NewMockPriceStream(cfg.Stream.Mock, cfg.Stream.Seed, log), nil
	case "live":
		if cfg.Stream.Live.URL == "" {
			return nil, &helpers.ConfigurationError{PriceStreamError: helpers.PriceStreamError{
				Message: "live stream requires a websocket url",
			}}
		}
		return NewLivePriceStream(cfg.Stream.Live.URL, log), nil
	default:
		return nil, &helpers.ConfigurationError{PriceStreamError: helpers.PriceStreamError{
			Message: fmt.Sprintf("unknown stream backend: '%s'", cfg.Stream.Backend),
		}}
	}
}
