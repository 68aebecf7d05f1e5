// Package server assembles the vault services from configuration and serves
// them as an app.
package server

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/wiser-pay/wiser-server/pkg/currency"
	"github.com/wiser-pay/wiser-server/pkg/currency/coingecko"
	"github.com/wiser-pay/wiser-server/pkg/currency/pyth"
	"github.com/wiser-pay/wiser-server/pkg/retry/backoff"
	"github.com/wiser-pay/wiser-server/pkg/solana"
	"github.com/wiser-pay/wiser-server/pkg/wiser/authority"
	"github.com/wiser-pay/wiser-server/pkg/wiser/common"
	"github.com/wiser-pay/wiser-server/pkg/wiser/smartwallet"
	"github.com/wiser-pay/wiser-server/pkg/wiser/transaction"
	"github.com/wiser-pay/wiser-server/pkg/wiser/vault"
)

// Services is the full set of vault services sharing one RPC client and one
// authority.
type Services struct {
	Client     solana.Client
	Commitment solana.Commitment

	VaultAccounts      *common.VaultAccounts
	SmartWalletProgram *common.Account

	Authority *authority.Manager
	Quoter    *currency.Quoter

	Deposits     *vault.DepositService
	Withdrawals  *vault.WithdrawService
	Initializer  *vault.Initializer
	Balances     *vault.BalanceReader
	SmartWallets *smartwallet.Service
}

// NewSolanaClient returns an RPC client for the configured endpoint.
func NewSolanaClient(configProvider ConfigProvider) solana.Client {
	conf := configProvider()
	return solana.New(conf.solanaRpcEndpoint.Get(context.Background()))
}

// NewPriceClient returns the configured SOL/USD price client.
func NewPriceClient(configProvider ConfigProvider) (currency.PriceClient, error) {
	conf := configProvider()
	ctx := context.Background()

	switch source := strings.ToLower(conf.priceSource.Get(ctx)); source {
	case PriceSourcePyth:
		return pyth.NewClient(conf.pythHermesUrl.Get(ctx), conf.pythSolUsdFeedId.Get(ctx)), nil
	case PriceSourceCoinGecko:
		return coingecko.NewClient(conf.coinGeckoUrl.Get(ctx)), nil
	default:
		return nil, errors.Errorf("unknown price source: %q", source)
	}
}

// NewServices wires the vault services around client and prices.
func NewServices(configProvider ConfigProvider, client solana.Client, prices currency.PriceClient) (*Services, error) {
	conf := configProvider()
	ctx := context.Background()

	commitment, err := solana.CommitmentFromString(conf.solanaCommitment.Get(ctx))
	if err != nil {
		return nil, err
	}

	vaultProgram, err := common.NewAccountFromPublicKeyString(conf.vaultProgramId.Get(ctx))
	if err != nil {
		return nil, errors.Wrap(err, "invalid vault program id")
	}
	vaultAccounts, err := vaultProgram.GetVaultAccounts()
	if err != nil {
		return nil, errors.Wrap(err, "error deriving vault accounts")
	}

	smartWalletProgram, err := common.NewAccountFromPublicKeyString(conf.smartWalletProgramId.Get(ctx))
	if err != nil {
		return nil, errors.Wrap(err, "invalid smart wallet program id")
	}

	confirmation := transaction.WithConfirmation(
		conf.confirmationTimeout.Get(ctx),
		conf.confirmationPollInterval.Get(ctx),
	)
	settle := transaction.WithSettleTimeout(conf.confirmationSettle.Get(ctx))
	retryBackoff := backoff.Constant(conf.depositRetryBackoff.Get(ctx))

	depositSubmitter := transaction.NewSubmitter(
		client,
		transaction.WithCommitment(commitment),
		transaction.WithPolicy(transaction.Policy{
			MaxAttempts: uint(conf.depositMaxAttempts.Get(ctx)),
			Backoff:     retryBackoff,
		}),
		confirmation,
		settle,
	)
	withdrawSubmitter := transaction.NewSubmitter(
		client,
		transaction.WithCommitment(commitment),
		transaction.WithPolicy(transaction.Policy{
			MaxAttempts: uint(conf.withdrawMaxAttempts.Get(ctx)),
			Backoff:     retryBackoff,
		}),
		confirmation,
		settle,
	)

	keyClient, err := authority.ParseBase58PrivateKey(conf.authorityKeyClientSecret.Get(ctx))
	if err != nil && !errors.Is(err, authority.ErrNoKeyConfigured) {
		return nil, errors.Wrap(err, "invalid authority key client secret")
	}

	manager := authority.NewManager(authority.NewChainSource(
		authority.NewConfigSource(conf.authoritySecretKey),
		authority.NewFileSource(conf.authorityKeyFile.Get(ctx)),
		authority.NewRemoteSource(conf.authorityKeyUrl.Get(ctx), keyClient),
	))

	return &Services{
		Client:     client,
		Commitment: commitment,

		VaultAccounts:      vaultAccounts,
		SmartWalletProgram: smartWalletProgram,

		Authority: manager,
		Quoter:    currency.NewQuoter(prices),

		Deposits:     vault.NewDepositService(client, vaultAccounts, depositSubmitter),
		Withdrawals:  vault.NewWithdrawService(client, vaultAccounts, manager, withdrawSubmitter),
		Initializer:  vault.NewInitializer(client, vaultAccounts, manager, withdrawSubmitter),
		Balances:     vault.NewBalanceReader(client, vaultAccounts, commitment),
		SmartWallets: smartwallet.NewService(client, smartWalletProgram, vaultAccounts, depositSubmitter),
	}, nil
}
