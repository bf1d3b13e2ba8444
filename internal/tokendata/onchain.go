package tokendata

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/detect"
	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/domain"
	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/solana"
)

// accountFetcher is the slice of the RPC client the on-chain source needs.
type accountFetcher interface {
	GetAccountInfo(ctx context.Context, pubkey string) (*solana.AccountInfo, error)
}

// OnChainSource reads token facts straight from chain accounts: the SPL
// mint account for decimals/supply and the Metaplex metadata PDA for
// name/symbol.
type OnChainSource struct {
	rpc accountFetcher
}

// NewOnChainSource creates an on-chain token data source.
func NewOnChainSource(rpc accountFetcher) *OnChainSource {
	return &OnChainSource{rpc: rpc}
}

// Fetch fills info with whatever the mint and metadata accounts expose.
// A missing or unparseable metadata account is not an error; the mint
// account itself must exist.
func (s *OnChainSource) Fetch(ctx context.Context, mint string, info *domain.TokenInfo) error {
	mintInfo, err := s.rpc.GetAccountInfo(ctx, mint)
	if err != nil {
		return fmt.Errorf("get mint account: %w", err)
	}

	// A short or undecodable mint account still leaves the metadata PDA
	// worth trying.
	_ = parseMintData(mintInfo.Data, info)

	pda := deriveMetadataPDA(mint)
	if pda == "" {
		return nil
	}
	metaInfo, err := s.rpc.GetAccountInfo(ctx, pda)
	if err != nil {
		return nil
	}
	parseMetaplexData(metaInfo.Data, info)
	return nil
}

// parseMintData parses SPL Token Mint account data.
// SPL Token Mint layout (82 bytes):
// - mintAuthority: Option<Pubkey> (36 bytes: 4 + 32)
// - supply: u64 (8 bytes)
// - decimals: u8 (1 byte)
// - isInitialized: bool (1 byte)
// - freezeAuthority: Option<Pubkey> (36 bytes: 4 + 32)
func parseMintData(data string, info *domain.TokenInfo) error {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return fmt.Errorf("decode mint data: %w", err)
	}

	if len(decoded) < 82 {
		return fmt.Errorf("mint data too short: %d", len(decoded))
	}

	supply := binary.LittleEndian.Uint64(decoded[36:44])
	decimals := int(decoded[44])

	info.Decimals = decimals
	info.Supply = float64(supply) / math.Pow(10, float64(decimals))
	return nil
}

// deriveMetadataPDA derives the Metaplex metadata PDA for a mint.
// Seeds: ["metadata", metaplex_program_id, mint]
func deriveMetadataPDA(mint string) string {
	mintBytes, err := base58.Decode(mint)
	if err != nil {
		return ""
	}
	programBytes, err := base58.Decode(detect.MetaplexMetadata)
	if err != nil {
		return ""
	}
	if len(mintBytes) != 32 || len(programBytes) != 32 {
		return ""
	}

	seeds := [][]byte{
		[]byte("metadata"),
		programBytes,
		mintBytes,
	}
	return derivePDA(seeds, programBytes)
}

// parseMetaplexData parses a Metaplex Token Metadata account.
// Layout:
// - key: u8 (1 byte, 4 for MetadataV1)
// - updateAuthority: Pubkey (32 bytes)
// - mint: Pubkey (32 bytes)
// - name: String (4-byte length + data, max 32 chars)
// - symbol: String (4-byte length + data, max 10 chars)
// - uri and further fields follow, unused here.
func parseMetaplexData(data string, info *domain.TokenInfo) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return
	}

	if len(decoded) < 100 {
		return
	}

	if decoded[0] != 4 { // MetadataV1 key
		return
	}

	// Skip: key(1) + updateAuthority(32) + mint(32)
	offset := 65

	if offset+4 > len(decoded) {
		return
	}
	nameLen := binary.LittleEndian.Uint32(decoded[offset:])
	offset += 4

	if nameLen > 100 || offset+int(nameLen) > len(decoded) {
		return
	}
	name := strings.TrimRight(string(decoded[offset:offset+int(nameLen)]), "\x00")
	offset += int(nameLen)
	if name != "" {
		info.Name = name
	}

	if offset+4 > len(decoded) {
		return
	}
	symbolLen := binary.LittleEndian.Uint32(decoded[offset:])
	offset += 4

	if symbolLen > 20 || offset+int(symbolLen) > len(decoded) {
		return
	}
	symbol := strings.TrimRight(string(decoded[offset:offset+int(symbolLen)]), "\x00")
	if symbol != "" {
		info.Symbol = symbol
	}
}

// derivePDA derives a Program Derived Address: sha256 over the seeds,
// a bump byte, the program id and the "ProgramDerivedAddress" marker,
// searching bumps from 255 down for an off-curve point.
func derivePDA(seeds [][]byte, programID []byte) string {
	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programID...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)

		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:])
		}
	}

	return ""
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
