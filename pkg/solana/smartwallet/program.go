// Package smartwallet builds instructions for, and parses accounts of, the
// on-chain smart wallet program. A smart wallet lets its owner draw funds
// from the vault into a per-owner wallet PDA and return them afterwards.
package smartwallet

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"

	"github.com/wiser-pay/wiser-server/pkg/solana"
	"github.com/wiser-pay/wiser-server/pkg/solana/system"
)

var (
	ErrInvalidProgram         = errors.New("invalid program id")
	ErrInvalidAccountData     = errors.New("unexpected account data")
	ErrInvalidInstructionData = errors.New("unexpected instruction data")
)

var (
	// PROGRAM_ID is the devnet deployment of the smart wallet program.
	PROGRAM_ID = solana.MustPublicKeyFromBase58("9RS7omQopJpsW3uYiCfxoTboEBtxo6a6o5GB5GCvmzUi")

	SYSTEM_PROGRAM_ID = ed25519.PublicKey(system.ProgramKey[:])
)

func putDiscriminator(dst []byte, v []byte, offset *int) {
	copy(dst[*offset:], v)
	*offset += 8
}

func putUint64(dst []byte, v uint64, offset *int) {
	binary.LittleEndian.PutUint64(dst[*offset:], v)
	*offset += 8
}

func getUint64(src []byte, dst *uint64, offset *int) {
	*dst = binary.LittleEndian.Uint64(src[*offset:])
	*offset += 8
}

func getKey(src []byte, dst *ed25519.PublicKey, offset *int) {
	*dst = make([]byte, ed25519.PublicKeySize)
	copy(*dst, src[*offset:])
	*offset += ed25519.PublicKeySize
}
