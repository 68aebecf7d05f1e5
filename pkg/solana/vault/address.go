package vault

import (
	"crypto/ed25519"

	"github.com/wiser-pay/wiser-server/pkg/solana"
)

var (
	vaultPrefix = []byte("vault")
)

// GetVaultAddress derives the single vault account of program. The address
// is a pure function of the program id.
func GetVaultAddress(program ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		program,
		vaultPrefix,
	)
}
