package tokendata

import (
	"context"
	"log"

	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/domain"
)

// source fills a TokenInfo from one upstream.
type source interface {
	Fetch(ctx context.Context, mint string, info *domain.TokenInfo) error
}

// Service combines the on-chain and market data sources into one
// best-effort enrichment call. Every upstream failure is logged and
// swallowed; the pipeline proceeds with whatever resolved.
type Service struct {
	onchain source
	market  source
	logger  *log.Logger
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	// OnChain reads the mint and metadata accounts. Optional.
	OnChain source
	// Market reads price/liquidity/market cap. Optional.
	Market source
	// Logger defaults to log.Default().
	Logger *log.Logger
}

// NewService creates the enrichment service.
func NewService(opts ServiceOptions) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		onchain: opts.OnChain,
		market:  opts.Market,
		logger:  logger,
	}
}

// Enrich returns whatever token data could be resolved for the mint.
// Never fails: a fully failed lookup yields a TokenInfo with only the
// mint set.
func (s *Service) Enrich(ctx context.Context, mint string) *domain.TokenInfo {
	info := &domain.TokenInfo{Mint: mint}
	if mint == "" {
		return info
	}

	if s.onchain != nil {
		if err := s.onchain.Fetch(ctx, mint, info); err != nil {
			s.logger.Printf("[tokendata] on-chain lookup failed for %s: %v", mint, err)
		}
	}
	if s.market != nil {
		if err := s.market.Fetch(ctx, mint, info); err != nil {
			s.logger.Printf("[tokendata] market lookup failed for %s: %v", mint, err)
		}
	}

	return info
}
