package detect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/solana"
)

var (
	testMint      = strings.Repeat("4", 40) + "pump"
	testOtherMint = strings.Repeat("5", 40) + "pump"
	testFeePayer  = strings.Repeat("9", 44)
	testPool      = strings.Repeat("7", 44)
)

func migrationTx(sig string, accountKeys []string) *solana.Transaction {
	return &solana.Transaction{
		Signature: sig,
		Meta: &solana.TransactionMeta{
			LogMessages: []string{"Program log: Instruction: Migrate"},
		},
		Message: &solana.TransactionMessage{
			AccountKeys: accountKeys,
		},
	}
}

func TestDetector_Classify_Migration(t *testing.T) {
	d := NewDetector(PumpFun)

	tx := migrationTx("SIG1", []string{testFeePayer, PumpFun, testMint})
	result := d.Classify(tx)

	assert.True(t, result.IsMigration)
	assert.Equal(t, "SIG1", result.Signature)
	assert.Equal(t, testMint, result.TokenMint)
}

func TestDetector_Classify_ExclusionWins(t *testing.T) {
	d := NewDetector(PumpFun)

	tx := migrationTx("SIG1", []string{testMint})
	tx.Meta.LogMessages = []string{
		"Program log: Instruction: Migrate",
		"Program log: Instruction: CollectCreatorFee",
	}

	result := d.Classify(tx)
	assert.False(t, result.IsMigration)
	assert.Empty(t, result.TokenMint)
}

func TestDetector_Classify_ExecutionErrorRejects(t *testing.T) {
	d := NewDetector(PumpFun)

	tx := migrationTx("SIG1", []string{testMint})
	tx.Meta.Err = map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}

	result := d.Classify(tx)
	assert.False(t, result.IsMigration)
}

func TestDetector_Classify_NoMigrationMarker(t *testing.T) {
	d := NewDetector(PumpFun)

	tx := migrationTx("SIG1", []string{testMint})
	tx.Meta.LogMessages = []string{"Program log: Instruction: Buy"}

	result := d.Classify(tx)
	assert.False(t, result.IsMigration)
}

func TestDetector_Classify_NilAndMissingFields(t *testing.T) {
	d := NewDetector(PumpFun)

	assert.False(t, d.Classify(nil).IsMigration)
	assert.False(t, d.Classify(&solana.Transaction{Signature: "SIG1"}).IsMigration)

	// Migration with no message degrades to an unresolved mint, never panics.
	tx := &solana.Transaction{
		Signature: "SIG1",
		Meta: &solana.TransactionMeta{
			LogMessages: []string{"Program log: Instruction: Migrate"},
		},
	}
	result := d.Classify(tx)
	assert.True(t, result.IsMigration)
	assert.Empty(t, result.TokenMint)
}

func TestDetector_ExtractMint_TopLevelWinsOverInstruction(t *testing.T) {
	d := NewDetector(PumpFun)

	tx := migrationTx("SIG1", []string{testFeePayer, testMint})
	tx.Message.Instructions = []solana.Instruction{
		{ProgramID: PumpFun, Accounts: []string{testOtherMint}},
	}

	result := d.Classify(tx)
	assert.Equal(t, testMint, result.TokenMint)
}

func TestDetector_ExtractMint_InstructionAccountsTier(t *testing.T) {
	d := NewDetector(PumpFun)

	// No vanity-suffix address in the top-level list.
	tx := migrationTx("SIG1", []string{testFeePayer, PumpFun})
	tx.Message.Instructions = []solana.Instruction{
		{ProgramID: PumpFun, Accounts: []string{testPool, testOtherMint}},
	}

	result := d.Classify(tx)
	assert.Equal(t, testOtherMint, result.TokenMint)
}

func TestDetector_ExtractMint_ParsedPayloadTier(t *testing.T) {
	d := NewDetector(PumpFun)

	tx := migrationTx("SIG1", []string{PumpFun, SystemProgram})
	tx.Message.Instructions = []solana.Instruction{
		{ProgramID: TokenProgram},
		{
			ProgramID: TokenProgram,
			Parsed: &solana.ParsedPayload{
				Type: "initializeAccount",
				Info: solana.PayloadInfo{Mint: "ParsedMintValue"},
			},
		},
	}

	result := d.Classify(tx)
	assert.Equal(t, "ParsedMintValue", result.TokenMint)
}

func TestDetector_ExtractMint_FallbackTier(t *testing.T) {
	d := NewDetector(PumpFun)

	// Nothing with the vanity suffix and no parsed payloads: the first
	// plausible non-program account wins.
	tx := migrationTx("SIG1", []string{SystemProgram, PumpFun, testFeePayer, testPool})

	result := d.Classify(tx)
	assert.Equal(t, testFeePayer, result.TokenMint)
}

func TestDetector_ExtractMint_Unresolved(t *testing.T) {
	d := NewDetector(PumpFun)

	tx := migrationTx("SIG1", []string{SystemProgram, PumpFun, TokenProgram})

	result := d.Classify(tx)
	assert.True(t, result.IsMigration)
	assert.Empty(t, result.TokenMint)
}

func TestDetector_ExtractPool_DistinctFromMint(t *testing.T) {
	d := NewDetector(PumpFun)

	tx := migrationTx("SIG1", []string{testMint, testPool})

	result := d.Classify(tx)
	assert.Equal(t, testMint, result.TokenMint)
	assert.Equal(t, testPool, result.Pool)
}
