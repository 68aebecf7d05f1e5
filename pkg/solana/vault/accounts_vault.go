package vault

import (
	"github.com/wiser-pay/wiser-server/pkg/solana/anchor"
)

// VaultAccountSize is the allocated size of the vault account, which only
// holds its discriminator.
const VaultAccountSize = anchor.DiscriminatorSize

var vaultAccountDiscriminator = anchor.AccountDiscriminator("VaultAccount")

type VaultAccount struct{}

func (obj *VaultAccount) Unmarshal(data []byte) error {
	if len(data) < VaultAccountSize {
		return ErrInvalidAccountData
	}
	if !anchor.HasDiscriminator(data, vaultAccountDiscriminator) {
		return ErrInvalidAccountData
	}
	return nil
}
