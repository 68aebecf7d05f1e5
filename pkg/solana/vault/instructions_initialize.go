package vault

import (
	"crypto/ed25519"

	"github.com/wiser-pay/wiser-server/pkg/solana"
	"github.com/wiser-pay/wiser-server/pkg/solana/anchor"
)

var initializeInstructionDiscriminator = anchor.InstructionDiscriminator("initialize")

type InitializeInstructionAccounts struct {
	Payer ed25519.PublicKey
	Vault ed25519.PublicKey
}

// NewInitializeInstruction creates the vault account. It fails on-chain when
// the vault already exists.
func NewInitializeInstruction(program ed25519.PublicKey, accounts *InitializeInstructionAccounts) solana.Instruction {
	var offset int

	data := make([]byte, len(initializeInstructionDiscriminator))
	putDiscriminator(data, initializeInstructionDiscriminator, &offset)

	return solana.NewInstruction(
		program,
		data,
		solana.NewAccountMeta(accounts.Payer, true),
		solana.NewAccountMeta(accounts.Vault, false),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
	)
}
