// Package vault builds instructions for, and parses accounts of, the on-chain
// vault program that pools deposited SOL under a single program derived
// address.
package vault

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
	// PROGRAM_ID is the devnet deployment of the vault program.
	PROGRAM_ID = solana.MustPublicKeyFromBase58("GArNcH5X1sQka24mZvrGuA3QqDhvE9CBe35ZugwNevoH")

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
