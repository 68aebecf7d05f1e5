package vault

import (
	"bytes"
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wiser-pay/wiser-server/pkg/metrics"
	"github.com/wiser-pay/wiser-server/pkg/solana"
	vault_program "github.com/wiser-pay/wiser-server/pkg/solana/vault"
	"github.com/wiser-pay/wiser-server/pkg/wiser/common"
)

const balanceReaderMetricsName = "vault.balance_reader"

// VaultInfo summarizes the vault of a program deployment.
type VaultInfo struct {
	Address     string  `json:"address"`
	Initialized bool    `json:"initialized"`
	Balance     float64 `json:"balance"`
}

// BalanceReader reads balances in whole SOL. Reads are never retried.
type BalanceReader struct {
	log        *logrus.Entry
	client     solana.Client
	accounts   *common.VaultAccounts
	commitment solana.Commitment
}

func NewBalanceReader(client solana.Client, accounts *common.VaultAccounts, commitment solana.Commitment) *BalanceReader {
	return &BalanceReader{
		log:        logrus.StandardLogger().WithField("type", "wiser/vault/balance"),
		client:     client,
		accounts:   accounts,
		commitment: commitment,
	}
}

// GetBalance returns the balance of account in SOL. An account that was
// never funded has a zero balance.
func (r *BalanceReader) GetBalance(ctx context.Context, account *common.Account) (float64, error) {
	tracer := metrics.TraceMethodCall(ctx, balanceReaderMetricsName, "GetBalance")
	defer tracer.End()

	if err := account.Validate(); err != nil {
		return 0, invalidInput(err)
	}

	lamports, err := r.client.GetBalance(account.PublicKey().ToBytes(), r.commitment)
	if err == solana.ErrNoBalance || err == solana.ErrNoAccountInfo {
		return 0, nil
	} else if err != nil {
		r.log.WithError(err).WithField("account", account.String()).Warn("failure getting balance")
		tracer.OnError(err)
		return 0, errors.Wrap(ErrBalanceReadFailed, err.Error())
	}

	return common.LamportsToSol(lamports), nil
}

// GetVaultBalance returns the balance of the vault in SOL.
func (r *BalanceReader) GetVaultBalance(ctx context.Context) (float64, error) {
	return r.GetBalance(ctx, r.accounts.Vault)
}

// GetVaultInfo returns the vault address, whether it has been initialized,
// and its balance.
func (r *BalanceReader) GetVaultInfo(ctx context.Context) (*VaultInfo, error) {
	tracer := metrics.TraceMethodCall(ctx, balanceReaderMetricsName, "GetVaultInfo")
	defer tracer.End()

	info := &VaultInfo{
		Address: r.accounts.Vault.String(),
	}

	account, err := r.client.GetAccountInfo(r.accounts.Vault.PublicKey().ToBytes(), r.commitment)
	switch err {
	case nil:
		var data vault_program.VaultAccount
		info.Initialized = bytes.Equal(account.Owner, r.accounts.Program.PublicKey().ToBytes()) && data.Unmarshal(account.Data) == nil
		info.Balance = common.LamportsToSol(account.Lamports)
	case solana.ErrNoAccountInfo:
	default:
		tracer.OnError(err)
		return nil, errors.Wrap(ErrBalanceReadFailed, err.Error())
	}

	return info, nil
}
