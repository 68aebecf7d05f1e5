package server

import (
	"time"

	"github.com/wiser-pay/wiser-server/pkg/config"
	"github.com/wiser-pay/wiser-server/pkg/config/env"
	"github.com/wiser-pay/wiser-server/pkg/config/memory"
	"github.com/wiser-pay/wiser-server/pkg/config/wrapper"
	"github.com/wiser-pay/wiser-server/pkg/currency/coingecko"
	"github.com/wiser-pay/wiser-server/pkg/currency/pyth"
	"github.com/wiser-pay/wiser-server/pkg/solana"
	"github.com/wiser-pay/wiser-server/pkg/wiser/transaction"
)

const (
	SolanaRpcEndpointConfigEnvName = "SOLANA_RPC_ENDPOINT"
	defaultSolanaRpcEndpoint       = string(solana.EnvironmentDev)

	SolanaCommitmentConfigEnvName = "SOLANA_COMMITMENT"
	defaultSolanaCommitment       = "confirmed"

	VaultProgramIdConfigEnvName = "VAULT_PROGRAM_ID"
	defaultVaultProgramId       = "GArNcH5X1sQka24mZvrGuA3QqDhvE9CBe35ZugwNevoH"

	SmartWalletProgramIdConfigEnvName = "SMART_WALLET_PROGRAM_ID"
	defaultSmartWalletProgramId       = "9RS7omQopJpsW3uYiCfxoTboEBtxo6a6o5GB5GCvmzUi"

	DepositMaxAttemptsConfigEnvName = "DEPOSIT_MAX_ATTEMPTS"
	defaultDepositMaxAttempts       = transaction.DefaultMaxAttempts

	DepositRetryBackoffConfigEnvName = "DEPOSIT_RETRY_BACKOFF"
	defaultDepositRetryBackoff       = transaction.DefaultBackoff

	WithdrawMaxAttemptsConfigEnvName = "WITHDRAW_MAX_ATTEMPTS"
	defaultWithdrawMaxAttempts       = transaction.DefaultMaxAttempts

	ConfirmationTimeoutConfigEnvName = "CONFIRMATION_TIMEOUT"
	defaultConfirmationTimeout       = 60 * time.Second

	ConfirmationPollIntervalConfigEnvName = "CONFIRMATION_POLL_INTERVAL"
	defaultConfirmationPollInterval       = 500 * time.Millisecond

	ConfirmationSettleTimeoutConfigEnvName = "CONFIRMATION_SETTLE_TIMEOUT"
	defaultConfirmationSettleTimeout       = 90 * time.Second

	AuthoritySecretKeyConfigEnvName = "SIGN_TOKEN"
	defaultAuthoritySecretKey       = ""

	AuthorityKeyFileConfigEnvName = "AUTHORITY_KEY_FILE"
	defaultAuthorityKeyFile       = ""

	AuthorityKeyUrlConfigEnvName = "AUTHORITY_KEY_URL"
	defaultAuthorityKeyUrl       = ""

	AuthorityKeyClientSecretConfigEnvName = "AUTHORITY_KEY_CLIENT_SECRET"
	defaultAuthorityKeyClientSecret       = ""

	PriceSourceConfigEnvName = "PRICE_SOURCE"
	defaultPriceSource       = PriceSourcePyth

	PythHermesUrlConfigEnvName = "PYTH_HERMES_URL"
	defaultPythHermesUrl       = pyth.DefaultHermesUrl

	PythSolUsdFeedIdConfigEnvName = "PYTH_SOL_USD_FEED_ID"
	defaultPythSolUsdFeedId       = pyth.SolUsdFeedId

	CoinGeckoUrlConfigEnvName = "COINGECKO_URL"
	defaultCoinGeckoUrl       = coingecko.DefaultBaseUrl
)

const (
	PriceSourcePyth      = "pyth"
	PriceSourceCoinGecko = "coingecko"
)

type conf struct {
	solanaRpcEndpoint        config.String
	solanaCommitment         config.String
	vaultProgramId           config.String
	smartWalletProgramId     config.String
	depositMaxAttempts       config.Uint64
	depositRetryBackoff      config.Duration
	withdrawMaxAttempts      config.Uint64
	confirmationTimeout      config.Duration
	confirmationPollInterval config.Duration
	confirmationSettle       config.Duration

	authoritySecretKey       config.String
	authorityKeyFile         config.String
	authorityKeyUrl          config.String
	authorityKeyClientSecret config.String

	priceSource      config.String
	pythHermesUrl    config.String
	pythSolUsdFeedId config.String
	coinGeckoUrl     config.String
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			solanaRpcEndpoint:        env.NewStringConfig(SolanaRpcEndpointConfigEnvName, defaultSolanaRpcEndpoint),
			solanaCommitment:         env.NewStringConfig(SolanaCommitmentConfigEnvName, defaultSolanaCommitment),
			vaultProgramId:           env.NewStringConfig(VaultProgramIdConfigEnvName, defaultVaultProgramId),
			smartWalletProgramId:     env.NewStringConfig(SmartWalletProgramIdConfigEnvName, defaultSmartWalletProgramId),
			depositMaxAttempts:       env.NewUint64Config(DepositMaxAttemptsConfigEnvName, defaultDepositMaxAttempts),
			depositRetryBackoff:      env.NewDurationConfig(DepositRetryBackoffConfigEnvName, defaultDepositRetryBackoff),
			withdrawMaxAttempts:      env.NewUint64Config(WithdrawMaxAttemptsConfigEnvName, defaultWithdrawMaxAttempts),
			confirmationTimeout:      env.NewDurationConfig(ConfirmationTimeoutConfigEnvName, defaultConfirmationTimeout),
			confirmationPollInterval: env.NewDurationConfig(ConfirmationPollIntervalConfigEnvName, defaultConfirmationPollInterval),
			confirmationSettle:       env.NewDurationConfig(ConfirmationSettleTimeoutConfigEnvName, defaultConfirmationSettleTimeout),

			authoritySecretKey:       env.NewStringConfig(AuthoritySecretKeyConfigEnvName, defaultAuthoritySecretKey),
			authorityKeyFile:         env.NewStringConfig(AuthorityKeyFileConfigEnvName, defaultAuthorityKeyFile),
			authorityKeyUrl:          env.NewStringConfig(AuthorityKeyUrlConfigEnvName, defaultAuthorityKeyUrl),
			authorityKeyClientSecret: env.NewStringConfig(AuthorityKeyClientSecretConfigEnvName, defaultAuthorityKeyClientSecret),

			priceSource:      env.NewStringConfig(PriceSourceConfigEnvName, defaultPriceSource),
			pythHermesUrl:    env.NewStringConfig(PythHermesUrlConfigEnvName, defaultPythHermesUrl),
			pythSolUsdFeedId: env.NewStringConfig(PythSolUsdFeedIdConfigEnvName, defaultPythSolUsdFeedId),
			coinGeckoUrl:     env.NewStringConfig(CoinGeckoUrlConfigEnvName, defaultCoinGeckoUrl),
		}
	}
}

type testOverrides struct {
	solanaRpcEndpoint  string
	priceSource        string
	coinGeckoUrl       string
	vaultProgramId     string
	authoritySecretKey       string
	authorityKeyClientSecret string
	withdrawAttempts         uint64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		c := WithEnvConfigs()()

		if len(overrides.solanaRpcEndpoint) > 0 {
			c.solanaRpcEndpoint = wrapper.NewStringConfig(memory.NewConfig(overrides.solanaRpcEndpoint), defaultSolanaRpcEndpoint)
		}
		if len(overrides.priceSource) > 0 {
			c.priceSource = wrapper.NewStringConfig(memory.NewConfig(overrides.priceSource), defaultPriceSource)
		}
		if len(overrides.coinGeckoUrl) > 0 {
			c.coinGeckoUrl = wrapper.NewStringConfig(memory.NewConfig(overrides.coinGeckoUrl), defaultCoinGeckoUrl)
		}
		if len(overrides.vaultProgramId) > 0 {
			c.vaultProgramId = wrapper.NewStringConfig(memory.NewConfig(overrides.vaultProgramId), defaultVaultProgramId)
		}
		c.authoritySecretKey = wrapper.NewStringConfig(memory.NewConfig(overrides.authoritySecretKey), defaultAuthoritySecretKey)
		c.authorityKeyFile = wrapper.NewStringConfig(memory.NewConfig(""), defaultAuthorityKeyFile)
		c.authorityKeyUrl = wrapper.NewStringConfig(memory.NewConfig(""), defaultAuthorityKeyUrl)
		c.authorityKeyClientSecret = wrapper.NewStringConfig(memory.NewConfig(overrides.authorityKeyClientSecret), defaultAuthorityKeyClientSecret)
		if overrides.withdrawAttempts > 0 {
			c.withdrawMaxAttempts = wrapper.NewUint64Config(memory.NewConfig(overrides.withdrawAttempts), defaultWithdrawMaxAttempts)
		}
		return c
	}
}
