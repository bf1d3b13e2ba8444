package tokendata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/domain"
)

// DefaultDexScreenerURL is the public DexScreener API base.
const DefaultDexScreenerURL = "https://api.dexscreener.com"

// DexScreenerClient fetches market data (price, liquidity, market cap)
// for a token mint from the DexScreener HTTP API.
type DexScreenerClient struct {
	baseURL string
	client  *http.Client
}

// DexScreenerOption configures the client.
type DexScreenerOption func(*DexScreenerClient)

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) DexScreenerOption {
	return func(c *DexScreenerClient) {
		c.baseURL = url
	}
}

// WithDexHTTPClient sets a custom http.Client.
func WithDexHTTPClient(client *http.Client) DexScreenerOption {
	return func(c *DexScreenerClient) {
		c.client = client
	}
}

// NewDexScreenerClient creates a DexScreener client.
func NewDexScreenerClient(opts ...DexScreenerOption) *DexScreenerClient {
	c := &DexScreenerClient{
		baseURL: DefaultDexScreenerURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type dexPair struct {
	PriceUSD  string `json:"priceUsd"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	MarketCap float64 `json:"marketCap"`
	FDV       float64 `json:"fdv"`
	BaseToken struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	} `json:"baseToken"`
}

type dexTokensResponse struct {
	Pairs []dexPair `json:"pairs"`
}

// Fetch fills info with market data for the mint. A token with no listed
// pairs yet (common right after migration) leaves info untouched and
// returns nil.
func (c *DexScreenerClient) Fetch(ctx context.Context, mint string, info *domain.TokenInfo) error {
	url := fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, mint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body dexTokensResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if len(body.Pairs) == 0 {
		return nil
	}

	// Take the deepest pair as representative.
	best := body.Pairs[0]
	for _, p := range body.Pairs[1:] {
		if p.Liquidity.USD > best.Liquidity.USD {
			best = p
		}
	}

	if price, err := strconv.ParseFloat(best.PriceUSD, 64); err == nil {
		info.PriceUSD = price
	}
	info.LiquidityUSD = best.Liquidity.USD
	info.MarketCapUSD = best.MarketCap
	if info.MarketCapUSD == 0 {
		info.MarketCapUSD = best.FDV
	}
	if info.Name == "" {
		info.Name = best.BaseToken.Name
	}
	if info.Symbol == "" {
		info.Symbol = best.BaseToken.Symbol
	}

	return nil
}
