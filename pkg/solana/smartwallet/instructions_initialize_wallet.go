package smartwallet

import (
	"crypto/ed25519"

	"github.com/wiser-pay/wiser-server/pkg/solana"
	"github.com/wiser-pay/wiser-server/pkg/solana/anchor"
)

var initializeWalletInstructionDiscriminator = anchor.InstructionDiscriminator("initialize_wallet")

type InitializeWalletInstructionAccounts struct {
	Owner         ed25519.PublicKey
	WalletAccount ed25519.PublicKey
	Wallet        ed25519.PublicKey
}

// NewInitializeWalletInstruction creates the owner's wallet account. The
// owner signs and pays its rent.
func NewInitializeWalletInstruction(program ed25519.PublicKey, accounts *InitializeWalletInstructionAccounts) solana.Instruction {
	var offset int

	data := make([]byte, anchor.DiscriminatorSize)
	putDiscriminator(data, initializeWalletInstructionDiscriminator, &offset)

	return solana.NewInstruction(
		program,
		data,
		solana.NewAccountMeta(accounts.Owner, true),
		solana.NewAccountMeta(accounts.WalletAccount, false),
		solana.NewReadonlyAccountMeta(accounts.Wallet, false),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
	)
}
