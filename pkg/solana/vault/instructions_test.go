package vault

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wiser-pay/wiser-server/pkg/solana"
)

func TestNewInitializeInstruction(t *testing.T) {
	payer := generateKey(t)
	vault, _, err := GetVaultAddress(PROGRAM_ID)
	require.NoError(t, err)

	ixn := NewInitializeInstruction(PROGRAM_ID, &InitializeInstructionAccounts{
		Payer: payer,
		Vault: vault,
	})

	assert.Equal(t, PROGRAM_ID, ixn.Program)
	assert.Equal(t, []byte{175, 175, 109, 31, 13, 152, 155, 237}, ixn.Data)
	require.Len(t, ixn.Accounts, 3)
	assert.Equal(t, solana.NewAccountMeta(payer, true), ixn.Accounts[0])
	assert.Equal(t, solana.NewAccountMeta(vault, false), ixn.Accounts[1])
	assert.Equal(t, solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false), ixn.Accounts[2])
}

func TestDepositInstruction(t *testing.T) {
	depositor := generateKey(t)
	vault, _, err := GetVaultAddress(PROGRAM_ID)
	require.NoError(t, err)

	ixn := NewDepositInstruction(
		PROGRAM_ID,
		&DepositInstructionAccounts{
			Depositor: depositor,
			Vault:     vault,
		},
		&DepositInstructionArgs{
			Amount: 100_000_000,
		},
	)

	expectedData := []byte{242, 35, 198, 137, 82, 225, 242, 182, 0x00, 0xe1, 0xf5, 0x05, 0, 0, 0, 0}
	assert.Equal(t, expectedData, ixn.Data)
	assert.True(t, ixn.Accounts[0].IsSigner)
	assert.True(t, ixn.Accounts[0].IsWritable)
	assert.False(t, ixn.Accounts[1].IsSigner)
	assert.True(t, ixn.Accounts[1].IsWritable)

	txn := solana.NewTransaction(depositor, ixn)
	assert.Equal(t, depositor, txn.FeePayer())
	assert.EqualValues(t, 1, txn.Message.Header.NumSignatures)

	args, accounts, err := DepositInstructionFromLegacyInstruction(PROGRAM_ID, txn, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 100_000_000, args.Amount)
	assert.Equal(t, depositor, accounts.Depositor)
	assert.Equal(t, vault, accounts.Vault)

	_, _, err = DepositInstructionFromLegacyInstruction(PROGRAM_ID, txn, 1)
	assert.Equal(t, ErrInvalidInstructionData, err)

	_, _, err = DepositInstructionFromLegacyInstruction(generateKey(t), txn, 0)
	assert.Equal(t, ErrInvalidProgram, err)

	_, _, err = WithdrawInstructionFromLegacyInstruction(PROGRAM_ID, txn, 0)
	assert.Equal(t, ErrInvalidInstructionData, err)
}

func TestWithdrawInstruction(t *testing.T) {
	authority := generateKey(t)
	recipient := generateKey(t)
	vault, _, err := GetVaultAddress(PROGRAM_ID)
	require.NoError(t, err)

	ixn := NewWithdrawInstruction(
		PROGRAM_ID,
		&WithdrawInstructionAccounts{
			Vault:     vault,
			Recipient: recipient,
		},
		&WithdrawInstructionArgs{
			Amount: 500_000_000,
		},
	)

	expectedData := []byte{183, 18, 70, 156, 148, 109, 161, 34, 0x00, 0x65, 0xcd, 0x1d, 0, 0, 0, 0}
	assert.Equal(t, expectedData, ixn.Data)
	for _, account := range ixn.Accounts {
		assert.False(t, account.IsSigner)
	}

	txn := solana.NewTransaction(authority, ixn)
	assert.EqualValues(t, 1, txn.Message.Header.NumSignatures)
	assert.True(t, txn.RequiresSigner(authority))
	assert.False(t, txn.RequiresSigner(recipient))

	args, accounts, err := WithdrawInstructionFromLegacyInstruction(PROGRAM_ID, txn, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 500_000_000, args.Amount)
	assert.Equal(t, vault, accounts.Vault)
	assert.Equal(t, recipient, accounts.Recipient)
}

func TestVaultAccount_Unmarshal(t *testing.T) {
	var account VaultAccount

	assert.NoError(t, account.Unmarshal([]byte{230, 251, 241, 83, 139, 202, 93, 28}))
	assert.Equal(t, ErrInvalidAccountData, account.Unmarshal(nil))
	assert.Equal(t, ErrInvalidAccountData, account.Unmarshal(make([]byte, VaultAccountSize)))
}

func generateKey(t *testing.T) ed25519.PublicKey {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return pub
}
