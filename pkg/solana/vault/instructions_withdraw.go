package vault

import (
	"bytes"
	"crypto/ed25519"

	"github.com/wiser-pay/wiser-server/pkg/solana"
	"github.com/wiser-pay/wiser-server/pkg/solana/anchor"
)

var withdrawInstructionDiscriminator = anchor.InstructionDiscriminator("withdraw")

const (
	WithdrawInstructionArgsSize = 8 // amount

	WithdrawInstructionSize = (anchor.DiscriminatorSize + // discriminator
		WithdrawInstructionArgsSize) // args
)

type WithdrawInstructionArgs struct {
	Amount uint64
}

type WithdrawInstructionAccounts struct {
	Vault     ed25519.PublicKey
	Recipient ed25519.PublicKey
}

// NewWithdrawInstruction moves Amount lamports from the vault to the
// recipient. The program keeps the vault rent exempt and fails with
// ErrorInsufficientFunds otherwise. The instruction requires no signer, so
// the fee payer of the enclosing transaction is the only signature.
func NewWithdrawInstruction(program ed25519.PublicKey, accounts *WithdrawInstructionAccounts, args *WithdrawInstructionArgs) solana.Instruction {
	var offset int

	data := make([]byte, WithdrawInstructionSize)
	putDiscriminator(data, withdrawInstructionDiscriminator, &offset)
	putUint64(data, args.Amount, &offset)

	return solana.NewInstruction(
		program,
		data,
		solana.NewAccountMeta(accounts.Vault, false),
		solana.NewAccountMeta(accounts.Recipient, false),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
	)
}

func WithdrawInstructionFromLegacyInstruction(program ed25519.PublicKey, txn solana.Transaction, idx int) (*WithdrawInstructionArgs, *WithdrawInstructionAccounts, error) {
	if idx >= len(txn.Message.Instructions) {
		return nil, nil, ErrInvalidInstructionData
	}

	instruction := txn.Message.Instructions[idx]

	if !bytes.Equal(program, txn.Message.Accounts[instruction.ProgramIndex]) {
		return nil, nil, ErrInvalidProgram
	}
	if len(instruction.Data) != WithdrawInstructionSize || len(instruction.Accounts) != 3 {
		return nil, nil, ErrInvalidInstructionData
	}
	if !anchor.HasDiscriminator(instruction.Data, withdrawInstructionDiscriminator) {
		return nil, nil, ErrInvalidInstructionData
	}

	offset := anchor.DiscriminatorSize

	var args WithdrawInstructionArgs
	getUint64(instruction.Data, &args.Amount, &offset)

	accounts := WithdrawInstructionAccounts{
		Vault:     txn.Message.Accounts[instruction.Accounts[0]],
		Recipient: txn.Message.Accounts[instruction.Accounts[1]],
	}

	return &args, &accounts, nil
}
