package testutil

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wiser-pay/wiser-server/pkg/solana"
	"github.com/wiser-pay/wiser-server/pkg/solana/anchor"
	"github.com/wiser-pay/wiser-server/pkg/solana/memory"
	vault_program "github.com/wiser-pay/wiser-server/pkg/solana/vault"
	"github.com/wiser-pay/wiser-server/pkg/wiser/common"
)

// GenerateSolanaKeypair returns a new random signing key.
func GenerateSolanaKeypair(t *testing.T) ed25519.PrivateKey {
	_, key, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return key
}

// GenerateSolanaKeys returns n distinct public keys nobody holds a signer for.
func GenerateSolanaKeys(t *testing.T, n int) []ed25519.PublicKey {
	keys := make([]ed25519.PublicKey, n)
	for i := range keys {
		keys[i] = GenerateSolanaKeypair(t).Public().(ed25519.PublicKey)
	}
	return keys
}

// NewFundedKeypair returns a signing key whose account holds lamports on the
// in memory chain.
func NewFundedKeypair(t *testing.T, client *memory.Client, lamports uint64) ed25519.PrivateKey {
	key := GenerateSolanaKeypair(t)
	client.SetBalance(key.Public().(ed25519.PublicKey), lamports)
	return key
}

// FundVault creates an initialized vault account on the in memory chain
// holding lamports above its rent exempt reserve.
func FundVault(client *memory.Client, accounts *common.VaultAccounts, lamports uint64) {
	client.SetAccount(accounts.Vault.PublicKey().ToBytes(), solana.AccountInfo{
		Data:     anchor.AccountDiscriminator("VaultAccount"),
		Owner:    vault_program.PROGRAM_ID,
		Lamports: memory.RentExemptMinimum(vault_program.VaultAccountSize) + lamports,
	})
}
