package smartwallet

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/wiser-pay/wiser-server/pkg/solana/anchor"
)

const (
	WalletAccountSize = (anchor.DiscriminatorSize +
		32 + // owner
		32 + // vault_program
		32) // vault_pda
)

var walletAccountDiscriminator = anchor.AccountDiscriminator("WalletAccount")

type WalletAccount struct {
	Owner        ed25519.PublicKey
	VaultProgram ed25519.PublicKey
	VaultPda     ed25519.PublicKey
}

func (obj *WalletAccount) Unmarshal(data []byte) error {
	if len(data) < WalletAccountSize {
		return ErrInvalidAccountData
	}

	if !anchor.HasDiscriminator(data, walletAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	offset := anchor.DiscriminatorSize

	getKey(data, &obj.Owner, &offset)
	getKey(data, &obj.VaultProgram, &offset)
	getKey(data, &obj.VaultPda, &offset)

	return nil
}

func (obj *WalletAccount) String() string {
	return fmt.Sprintf(
		"WalletAccount{owner=%s,vault_program=%s,vault_pda=%s}",
		base58.Encode(obj.Owner),
		base58.Encode(obj.VaultProgram),
		base58.Encode(obj.VaultPda),
	)
}
