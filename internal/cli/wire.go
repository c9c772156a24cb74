package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/MikeSquared-Agency/lazyswap/internal/anthropic"
	"github.com/MikeSquared-Agency/lazyswap/internal/config"
	"github.com/MikeSquared-Agency/lazyswap/internal/conversation"
	"github.com/MikeSquared-Agency/lazyswap/internal/intent"
	"github.com/MikeSquared-Agency/lazyswap/internal/sideshift"
	"github.com/MikeSquared-Agency/lazyswap/internal/tokens"
)

// exchange serves coin lists from the cache and everything else from the
// client.
type exchange struct {
	*sideshift.Client
	coins *tokens.CoinCache
}

func newExchange(cfg config.Config) *exchange {
	client := sideshift.NewClient(cfg.SideShiftBaseURL, cfg.SideShiftSecret, cfg.AffiliateID, cfg.CallTimeout)
	return &exchange{Client: client, coins: tokens.NewCoinCache(client, cfg.CoinCacheTTL)}
}

func (x *exchange) ListCoins(ctx context.Context) ([]sideshift.Coin, error) {
	return x.coins.ListCoins(ctx)
}

// newExtractor uses the patterns alone unless an Anthropic key is configured.
func newExtractor(cfg config.Config, logger *slog.Logger) intent.Extractor {
	if cfg.AnthropicAPIKey == "" {
		return intent.Patterns{}
	}
	llm := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, 0)
	logger.Info("llm intent extraction enabled", "model", llm.Model())
	return intent.NewChain(logger, intent.Patterns{}, intent.NewLLM(llm, logger))
}

type engineDeps struct {
	store     conversation.Store
	exchange  *exchange
	publisher conversation.Publisher
	metrics   *conversation.Metrics
}

func newEngine(cfg config.Config, deps engineDeps, logger *slog.Logger) *conversation.Engine {
	return conversation.NewEngine(
		deps.store,
		newExtractor(cfg, logger),
		tokens.NewValidator(deps.exchange),
		deps.exchange,
		logger,
		conversation.Options{
			AffiliateID: cfg.AffiliateID,
			CallTimeout: cfg.CallTimeout,
			Publisher:   deps.publisher,
			Metrics:     deps.metrics,
		},
	)
}

// publishers fans each event out to every configured sink.
type publishers []conversation.Publisher

func (ps publishers) Publish(subject string, data any) error {
	var errs []error
	for _, p := range ps {
		if err := p.Publish(subject, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
