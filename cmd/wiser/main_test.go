package main

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	currency_memory "github.com/wiser-pay/wiser-server/pkg/currency/memory"
	"github.com/wiser-pay/wiser-server/pkg/solana"
	"github.com/wiser-pay/wiser-server/pkg/solana/memory"
	vault_program "github.com/wiser-pay/wiser-server/pkg/solana/vault"
	"github.com/wiser-pay/wiser-server/pkg/testutil"
	"github.com/wiser-pay/wiser-server/pkg/wiser/server"
)

type testEnv struct {
	client *memory.Client
	prices *currency_memory.Client
}

func setup(t *testing.T) *testEnv {
	return &testEnv{
		client: memory.NewClient(),
		prices: currency_memory.NewClient(200),
	}
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	cmd := newRootCmd(func() (*server.Services, error) {
		return server.NewServices(server.WithEnvConfigs(), e.client, e.prices)
	})

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func writeKeypair(t *testing.T, key ed25519.PrivateKey) string {
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	raw, err := json.Marshal(ints)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, raw, 0600))
	return path
}

func TestQuoteCmd(t *testing.T) {
	env := setup(t)

	out, err := env.run(t, "quote", "50")
	require.NoError(t, err)
	assert.Contains(t, out, "50 USD = 0.250000000 SOL")

	calls := env.prices.Calls()
	for _, amount := range []string{"-5", "0", "ten"} {
		_, err = env.run(t, "quote", "--", amount)
		assert.Error(t, err, amount)
	}
	assert.Equal(t, calls, env.prices.Calls())
}

func TestVaultAddressCmd(t *testing.T) {
	env := setup(t)

	out, err := env.run(t, "vault", "address")
	require.NoError(t, err)
	assert.Equal(t, "93XAG4BtLd4d6WQtuAfTAyg85yoXHMZiBrF9Aw8PcXvK", strings.TrimSpace(out))
}

func TestVaultBalanceCmd(t *testing.T) {
	env := setup(t)

	out, err := env.run(t, "vault", "balance")
	require.NoError(t, err)
	assert.Contains(t, out, "initialized: false")
}

func TestVaultDepositCmd(t *testing.T) {
	env := setup(t)
	key := testutil.NewFundedKeypair(t, env.client, solana.LamportsPerSol)

	out, err := env.run(t, "vault", "deposit", "0.1", "--keypair", writeKeypair(t, key))
	require.NoError(t, err)

	submitted := env.client.Submitted()
	require.Len(t, submitted, 1)
	assert.Equal(t, submitted[0].Signature().String(), strings.TrimSpace(out))

	args, _, err := vault_program.DepositInstructionFromLegacyInstruction(vault_program.PROGRAM_ID, submitted[0], 0)
	require.NoError(t, err)
	assert.EqualValues(t, solana.LamportsPerSol/10, args.Amount)
}

func TestVaultDepositCmd_Rejections(t *testing.T) {
	env := setup(t)

	_, err := env.run(t, "vault", "deposit", "0.1")
	assert.Error(t, err)

	_, err = env.run(t, "vault", "deposit", "lots", "--keypair", writeKeypair(t, testutil.GenerateSolanaKeypair(t)))
	assert.Error(t, err)

	assert.Empty(t, env.client.Submitted())
}

func TestVaultWithdrawCmd_InvalidRecipient(t *testing.T) {
	env := setup(t)

	_, err := env.run(t, "vault", "withdraw", "0.5", "nope")
	assert.Error(t, err)
	assert.Zero(t, env.client.TotalCalls())
}

func TestWalletBalanceCmd(t *testing.T) {
	env := setup(t)
	key := testutil.GenerateSolanaKeypair(t)

	out, err := env.run(t, "wallet", "balance", "--keypair", writeKeypair(t, key))
	require.NoError(t, err)
	assert.Contains(t, out, base58.Encode(key.Public().(ed25519.PublicKey)))
	assert.Contains(t, out, "initialized:    false")
}
