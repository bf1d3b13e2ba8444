package solana

import "context"

// RPCClient defines the Solana RPC HTTP interface.
type RPCClient interface {
	// GetTransaction retrieves a transaction by signature.
	// Returns ErrNotFound if the transaction does not exist and
	// ErrRateLimited when the endpoint responds with HTTP 429.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetAccountInfo retrieves account info by public key.
	// Returns ErrNotFound if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)
}

// Transaction represents a fetched Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err          interface{}
	LogMessages  []string
	PreBalances  []uint64
	PostBalances []uint64
}

// TransactionMessage contains the parsed transaction message.
type TransactionMessage struct {
	AccountKeys  []string
	Instructions []Instruction
}

// Instruction is one top-level instruction. Accounts holds the addresses
// the instruction references. Parsed is set only when the RPC node could
// decode the instruction into a typed payload.
type Instruction struct {
	ProgramID string
	Accounts  []string
	Parsed    *ParsedPayload
}

// ParsedPayload is the decoded instruction payload, reduced to the
// address-bearing fields we inspect.
type ParsedPayload struct {
	Type string
	Info PayloadInfo
}

// PayloadInfo carries the mint-related fields a parsed instruction may expose.
type PayloadInfo struct {
	Mint      string
	TokenMint string
	Account   string
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       string // base64 encoded
	Executable bool
	RentEpoch  uint64
}
