package lyrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"heimdall/models"
	"heimdall/services/fallback"
)

// Capability is the chain name used in logs and failures.
const Capability = "lyrics"

// ProviderConfig selects and tunes one lyrics provider.
type ProviderConfig struct {
	Name    string
	BaseURL string
	Timeout time.Duration
}

// DefaultProviders is the ranking used when none is configured.
func DefaultProviders() []ProviderConfig {
	return []ProviderConfig{
		{Name: ProviderOVH, Timeout: DefaultTimeout},
		{Name: ProviderLRCLIB, Timeout: DefaultTimeout},
	}
}

// NewChain builds the ranked lyrics chain. Unknown provider names are
// rejected so a typo in the config does not silently drop a source.
func NewChain(cfgs []ProviderConfig, httpc *http.Client, logger zerolog.Logger) (*fallback.Chain[Query, models.LyricsText], error) {
	if len(cfgs) == 0 {
		cfgs = DefaultProviders()
	}

	providers := make([]fallback.Provider[Query, models.LyricsText], 0, len(cfgs))
	for _, c := range cfgs {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		switch c.Name {
		case ProviderOVH:
			providers = append(providers, NewOVHProvider(c.BaseURL, timeout, httpc))
		case ProviderLRCLIB:
			providers = append(providers, NewLRCLIBProvider(c.BaseURL, timeout, httpc))
		default:
			return nil, fmt.Errorf("unknown lyrics provider %q", c.Name)
		}
	}
	return fallback.NewChain(Capability, logger, providers...), nil
}
