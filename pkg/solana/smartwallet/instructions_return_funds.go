package smartwallet

import (
	"crypto/ed25519"

	"github.com/wiser-pay/wiser-server/pkg/solana"
	"github.com/wiser-pay/wiser-server/pkg/solana/anchor"
)

var returnFundsInstructionDiscriminator = anchor.InstructionDiscriminator("return_funds")

const (
	ReturnFundsInstructionArgsSize = 8 // amount

	ReturnFundsInstructionSize = (anchor.DiscriminatorSize + // discriminator
		ReturnFundsInstructionArgsSize) // args
)

type ReturnFundsInstructionArgs struct {
	Amount uint64
}

type ReturnFundsInstructionAccounts struct {
	WalletAccount ed25519.PublicKey
	Wallet        ed25519.PublicKey
	Vault         ed25519.PublicKey
	Owner         ed25519.PublicKey
}

// NewReturnFundsInstruction moves Amount lamports from the owner's wallet PDA
// back into the vault.
func NewReturnFundsInstruction(program ed25519.PublicKey, accounts *ReturnFundsInstructionAccounts, args *ReturnFundsInstructionArgs) solana.Instruction {
	var offset int

	data := make([]byte, ReturnFundsInstructionSize)
	putDiscriminator(data, returnFundsInstructionDiscriminator, &offset)
	putUint64(data, args.Amount, &offset)

	return solana.NewInstruction(
		program,
		data,
		solana.NewReadonlyAccountMeta(accounts.WalletAccount, false),
		solana.NewAccountMeta(accounts.Wallet, false),
		solana.NewAccountMeta(accounts.Vault, false),
		solana.NewReadonlyAccountMeta(accounts.Owner, true),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
	)
}

func ReturnFundsInstructionFromLegacyInstruction(program ed25519.PublicKey, txn solana.Transaction, idx int) (*ReturnFundsInstructionArgs, *ReturnFundsInstructionAccounts, error) {
	if idx >= len(txn.Message.Instructions) {
		return nil, nil, ErrInvalidInstructionData
	}

	instruction := txn.Message.Instructions[idx]

	if !program.Equal(txn.Message.Accounts[instruction.ProgramIndex]) {
		return nil, nil, ErrInvalidProgram
	}
	if len(instruction.Data) != ReturnFundsInstructionSize || len(instruction.Accounts) != 5 {
		return nil, nil, ErrInvalidInstructionData
	}
	if !anchor.HasDiscriminator(instruction.Data, returnFundsInstructionDiscriminator) {
		return nil, nil, ErrInvalidInstructionData
	}

	offset := anchor.DiscriminatorSize

	var args ReturnFundsInstructionArgs
	getUint64(instruction.Data, &args.Amount, &offset)

	accounts := ReturnFundsInstructionAccounts{
		WalletAccount: txn.Message.Accounts[instruction.Accounts[0]],
		Wallet:        txn.Message.Accounts[instruction.Accounts[1]],
		Vault:         txn.Message.Accounts[instruction.Accounts[2]],
		Owner:         txn.Message.Accounts[instruction.Accounts[3]],
	}

	return &args, &accounts, nil
}
