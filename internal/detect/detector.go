package detect

import (
	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/solana"
)

// DetectionResult is the pure output of classifying one transaction.
type DetectionResult struct {
	Signature   string
	IsMigration bool
	// TokenMint is empty when no extraction tier produced an address.
	// The event is still a migration, flagged unresolved downstream.
	TokenMint string
	// Pool is a best-effort guess at the created liquidity pool account.
	Pool string
}

// Detector classifies fetched transactions as migrations and extracts
// the migrated token's mint address. Stateless; never errors. Missing or
// malformed fields count as "no evidence", not failures.
type Detector struct {
	program string
}

// NewDetector creates a detector watching the given program address.
func NewDetector(program string) *Detector {
	if program == "" {
		program = PumpFun
	}
	return &Detector{program: program}
}

// Classify decides whether tx is a migration and, if so, extracts the
// token mint. Classification rule: migration marker present AND no
// exclusion marker AND no execution error. An exclusion marker is
// authoritative even when a migration marker is also present.
func (d *Detector) Classify(tx *solana.Transaction) DetectionResult {
	result := DetectionResult{}
	if tx == nil {
		return result
	}
	result.Signature = tx.Signature

	if tx.Meta == nil || tx.Meta.Err != nil {
		return result
	}

	logs := tx.Meta.LogMessages
	if !HasMigrationIndicator(logs) || HasExclusionIndicator(logs) {
		return result
	}

	result.IsMigration = true
	result.TokenMint = d.extractMint(tx)
	result.Pool = d.extractPool(tx, result.TokenMint)
	return result
}

// extractMint walks the extraction tiers in strict priority order and
// returns the first match. Empty when nothing plausible is found; an
// address is never fabricated.
func (d *Detector) extractMint(tx *solana.Transaction) string {
	if tx.Message == nil {
		return ""
	}

	// Tier 1: top-level account list.
	for _, addr := range tx.Message.AccountKeys {
		if LooksLikeMintAddress(addr) {
			return addr
		}
	}

	// Tier 2: accounts referenced by top-level instructions.
	for _, ins := range tx.Message.Instructions {
		for _, addr := range ins.Accounts {
			if LooksLikeMintAddress(addr) {
				return addr
			}
		}
	}

	// Tier 3: decoded instruction payloads exposing a mint field.
	for _, ins := range tx.Message.Instructions {
		if ins.Parsed == nil {
			continue
		}
		for _, addr := range []string{ins.Parsed.Info.Mint, ins.Parsed.Info.TokenMint, ins.Parsed.Info.Account} {
			if addr != "" {
				return addr
			}
		}
	}

	// Tier 4: first plausible non-program account. Known accuracy limit:
	// a transaction referencing several non-program 44-char accounts can
	// yield the wrong one here.
	for _, addr := range tx.Message.AccountKeys {
		if len(addr) != mintAddressLen {
			continue
		}
		if IsKnownProgramAddress(addr) || addr == d.program {
			continue
		}
		return addr
	}

	return ""
}

// extractPool guesses the pool account: the first plausible non-program
// address distinct from the mint. Best-effort, may be empty.
func (d *Detector) extractPool(tx *solana.Transaction, mint string) string {
	if tx.Message == nil {
		return ""
	}
	for _, addr := range tx.Message.AccountKeys {
		if len(addr) != mintAddressLen || addr == mint {
			continue
		}
		if IsKnownProgramAddress(addr) || addr == d.program {
			continue
		}
		return addr
	}
	return ""
}
