package smartwallet

import (
	"crypto/ed25519"

	"github.com/wiser-pay/wiser-server/pkg/solana"
)

var (
	walletAccountPrefix = []byte("wallet_account")
	walletPrefix        = []byte("wallet")
)

type GetWalletAccountAddressArgs struct {
	Owner ed25519.PublicKey
}

// GetWalletAccountAddress derives the account holding the owner's smart
// wallet state.
func GetWalletAccountAddress(program ed25519.PublicKey, args *GetWalletAccountAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		program,
		walletAccountPrefix,
		args.Owner,
	)
}

type GetWalletAddressArgs struct {
	Owner ed25519.PublicKey
}

// GetWalletAddress derives the owner's wallet PDA, which receives funds
// drawn from the vault.
func GetWalletAddress(program ed25519.PublicKey, args *GetWalletAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		program,
		walletPrefix,
		args.Owner,
	)
}
