package domain

import "time"

// MigrationEvent is the normalized event produced for one confirmed
// migration. Constructed once by the pipeline; enrichment fields may be
// attached afterwards, nothing else is mutated.
// Corresponds to the migration_events table.
type MigrationEvent struct {
	Signature string    // transaction signature (PK)
	TokenMint string    // migrated token mint, empty when unresolved
	Pool      string    // liquidity pool account, best-effort
	Slot      int64     // slot the transaction landed in
	Timestamp time.Time // block time, or observation time when absent
	ValueSOL  float64   // transferred-SOL estimate, 0 when unknown
	TxURL     string    // canonical explorer link
	// Unresolved marks migrations where no extraction tier produced a
	// mint address.
	Unresolved bool
}

// TokenInfo is best-effort enrichment for a migrated token. Any field
// may be zero when the upstream lookup failed.
type TokenInfo struct {
	Mint         string
	Name         string
	Symbol       string
	Decimals     int
	Supply       float64
	PriceUSD     float64
	LiquidityUSD float64
	MarketCapUSD float64
}
