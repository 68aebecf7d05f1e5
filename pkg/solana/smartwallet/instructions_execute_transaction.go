package smartwallet

import (
	"crypto/ed25519"

	"github.com/wiser-pay/wiser-server/pkg/solana"
	"github.com/wiser-pay/wiser-server/pkg/solana/anchor"
)

var executeTransactionInstructionDiscriminator = anchor.InstructionDiscriminator("execute_transaction")

const (
	ExecuteTransactionInstructionArgsSize = 8 // amount

	ExecuteTransactionInstructionSize = (anchor.DiscriminatorSize + // discriminator
		ExecuteTransactionInstructionArgsSize) // args
)

type ExecuteTransactionInstructionArgs struct {
	Amount uint64
}

type ExecuteTransactionInstructionAccounts struct {
	WalletAccount ed25519.PublicKey
	Wallet        ed25519.PublicKey
	Vault         ed25519.PublicKey
	Owner         ed25519.PublicKey

	// VaultProgram is appended as a remaining account so the program can
	// invoke the vault's withdraw.
	VaultProgram ed25519.PublicKey
}

// NewExecuteTransactionInstruction draws Amount lamports from the vault into
// the owner's wallet PDA.
func NewExecuteTransactionInstruction(program ed25519.PublicKey, accounts *ExecuteTransactionInstructionAccounts, args *ExecuteTransactionInstructionArgs) solana.Instruction {
	var offset int

	data := make([]byte, ExecuteTransactionInstructionSize)
	putDiscriminator(data, executeTransactionInstructionDiscriminator, &offset)
	putUint64(data, args.Amount, &offset)

	metas := []solana.AccountMeta{
		solana.NewReadonlyAccountMeta(accounts.WalletAccount, false),
		solana.NewAccountMeta(accounts.Wallet, false),
		solana.NewAccountMeta(accounts.Vault, false),
		solana.NewReadonlyAccountMeta(accounts.Owner, true),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
	}
	if len(accounts.VaultProgram) > 0 {
		metas = append(metas, solana.NewReadonlyAccountMeta(accounts.VaultProgram, false))
	}

	return solana.NewInstruction(program, data, metas...)
}
