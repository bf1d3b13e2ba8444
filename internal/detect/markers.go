package detect

import (
	"strings"

	"github.com/mr-tron/base58"
)

// Well-known program and system addresses.
const (
	// PumpFun is the pump.fun bonding curve program ID.
	PumpFun = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	// PumpSwapAMM is the pump.fun AMM program tokens migrate into.
	PumpSwapAMM = "pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA"
	// SystemProgram is the native system program.
	SystemProgram = "11111111111111111111111111111111"
	// TokenProgram is the SPL token program.
	TokenProgram = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	// AssociatedTokenProgram is the SPL associated token account program.
	AssociatedTokenProgram = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	// ComputeBudgetProgram is the compute budget program.
	ComputeBudgetProgram = "ComputeBudget111111111111111111111111111111"
	// MetaplexMetadata is the Metaplex token metadata program.
	MetaplexMetadata = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"
	// WSOLMint is the wrapped SOL mint.
	WSOLMint = "So11111111111111111111111111111111111111112"
	// RentSysvar is the rent sysvar account.
	RentSysvar = "SysvarRent111111111111111111111111111111111"
)

// Log markers emitted by the pump.fun program. Matching is
// case-insensitive against the raw log line.
const (
	// migrationMarker is the instruction name logged for a bonding curve
	// to AMM migration. Matched as a whole token so it does not fire on
	// MigrateBondingCurve.
	migrationMarker = "instruction: migrate"
)

// exclusionMarkers name adjacent instructions that share vocabulary with
// a migration but must never raise an alert: creator fee collection and
// the administrative curve migration.
var exclusionMarkers = []string{
	"instruction: collectcreatorfee",
	"instruction: migratebondingcurve",
}

// Mint address shape for tokens created through pump.fun.
const (
	// mintAddressLen is the base58 length of pump.fun mint addresses.
	mintAddressLen = 44
	// mintVanitySuffix is the vanity suffix the pump.fun mint grinder produces.
	mintVanitySuffix = "pump"
	// pubkeyLen is the decoded public key size in bytes.
	pubkeyLen = 32
)

// knownAddresses lists system and program accounts that must never be
// mistaken for a user token mint by the fallback extraction tier.
var knownAddresses = map[string]struct{}{
	PumpFun:                {},
	PumpSwapAMM:            {},
	SystemProgram:          {},
	TokenProgram:           {},
	AssociatedTokenProgram: {},
	ComputeBudgetProgram:   {},
	MetaplexMetadata:       {},
	WSOLMint:               {},
	RentSysvar:             {},
}

// HasMigrationIndicator reports whether any log line contains the
// migration instruction marker as an exact token.
func HasMigrationIndicator(logs []string) bool {
	for _, line := range logs {
		lower := strings.ToLower(line)
		idx := strings.Index(lower, migrationMarker)
		if idx < 0 {
			continue
		}
		rest := lower[idx+len(migrationMarker):]
		if rest == "" || !isWordByte(rest[0]) {
			return true
		}
	}
	return false
}

// HasExclusionIndicator reports whether any log line matches one of the
// fixed exclusion markers.
func HasExclusionIndicator(logs []string) bool {
	for _, line := range logs {
		lower := strings.ToLower(line)
		for _, marker := range exclusionMarkers {
			if strings.Contains(lower, marker) {
				return true
			}
		}
	}
	return false
}

// LooksLikeMintAddress reports whether address has the shape of a
// pump.fun token mint: 44 base58 characters decoding to a 32-byte key,
// ending in the vanity suffix. Heuristic, not cryptographic validation.
func LooksLikeMintAddress(address string) bool {
	if len(address) != mintAddressLen {
		return false
	}
	if !strings.HasSuffix(address, mintVanitySuffix) {
		return false
	}
	decoded, err := base58.Decode(address)
	if err != nil {
		return false
	}
	return len(decoded) == pubkeyLen
}

// IsKnownProgramAddress reports whether address is a well-known system
// or program account.
func IsKnownProgramAddress(address string) bool {
	_, ok := knownAddresses[address]
	return ok
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '_'
}
