package solana

import "errors"

// Sentinel errors returned by the RPC and WebSocket clients.
var (
	// ErrRateLimited indicates the RPC endpoint responded with HTTP 429.
	// Callers decide whether and when to retry.
	ErrRateLimited = errors.New("rate limited")

	// ErrNotFound indicates the requested transaction or account does not exist
	// at the requested commitment level.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates the endpoint rejected our credentials.
	// Terminal: reconnecting with the same credentials cannot succeed.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrReconnectExhausted indicates the reconnect attempt bound was reached.
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
)
