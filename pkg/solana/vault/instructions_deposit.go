package vault

import (
	"bytes"
	"crypto/ed25519"

	"github.com/wiser-pay/wiser-server/pkg/solana"
	"github.com/wiser-pay/wiser-server/pkg/solana/anchor"
)

var depositInstructionDiscriminator = anchor.InstructionDiscriminator("deposit")

const (
	DepositInstructionArgsSize = 8 // amount

	DepositInstructionSize = (anchor.DiscriminatorSize + // discriminator
		DepositInstructionArgsSize) // args
)

type DepositInstructionArgs struct {
	Amount uint64
}

type DepositInstructionAccounts struct {
	Depositor ed25519.PublicKey
	Vault     ed25519.PublicKey
}

// NewDepositInstruction transfers Amount lamports from the depositor into
// the vault. The depositor signs and pays.
func NewDepositInstruction(program ed25519.PublicKey, accounts *DepositInstructionAccounts, args *DepositInstructionArgs) solana.Instruction {
	var offset int

	data := make([]byte, DepositInstructionSize)
	putDiscriminator(data, depositInstructionDiscriminator, &offset)
	putUint64(data, args.Amount, &offset)

	return solana.NewInstruction(
		program,
		data,
		solana.NewAccountMeta(accounts.Depositor, true),
		solana.NewAccountMeta(accounts.Vault, false),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
	)
}

func DepositInstructionFromLegacyInstruction(program ed25519.PublicKey, txn solana.Transaction, idx int) (*DepositInstructionArgs, *DepositInstructionAccounts, error) {
	if idx >= len(txn.Message.Instructions) {
		return nil, nil, ErrInvalidInstructionData
	}

	instruction := txn.Message.Instructions[idx]

	if !bytes.Equal(program, txn.Message.Accounts[instruction.ProgramIndex]) {
		return nil, nil, ErrInvalidProgram
	}
	if len(instruction.Data) != DepositInstructionSize || len(instruction.Accounts) != 3 {
		return nil, nil, ErrInvalidInstructionData
	}
	if !anchor.HasDiscriminator(instruction.Data, depositInstructionDiscriminator) {
		return nil, nil, ErrInvalidInstructionData
	}

	offset := anchor.DiscriminatorSize

	var args DepositInstructionArgs
	getUint64(instruction.Data, &args.Amount, &offset)

	accounts := DepositInstructionAccounts{
		Depositor: txn.Message.Accounts[instruction.Accounts[0]],
		Vault:     txn.Message.Accounts[instruction.Accounts[1]],
	}

	return &args, &accounts, nil
}
