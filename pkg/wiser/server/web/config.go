package web

import (
	"github.com/wiser-pay/wiser-server/pkg/config"
	"github.com/wiser-pay/wiser-server/pkg/config/env"
	"github.com/wiser-pay/wiser-server/pkg/config/memory"
	"github.com/wiser-pay/wiser-server/pkg/config/wrapper"
)

const (
	DefaultWithdrawAmountSolConfigEnvName = "DEFAULT_WITHDRAW_AMOUNT_SOL"
	defaultDefaultWithdrawAmountSol       = 0.5

	WithdrawRateLimitConfigEnvName = "WITHDRAW_RATE_LIMIT"
	defaultWithdrawRateLimit       = 0.2

	AuthorityKeyClientPublicKeyConfigEnvName = "AUTHORITY_KEY_CLIENT_PUBLIC_KEY"
	defaultAuthorityKeyClientPublicKey       = ""

	AuthoritySecretKeyConfigEnvName = "SIGN_TOKEN"
	defaultAuthoritySecretKey       = ""

	TrustedProxiesConfigEnvName = "TRUSTED_PROXIES"
	defaultTrustedProxies       = ""
)

type conf struct {
	defaultWithdrawAmountSol    config.Float64
	withdrawRateLimit           config.Float64
	authorityKeyClientPublicKey config.String
	authoritySecretKey          config.String
	trustedProxies              config.String
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			defaultWithdrawAmountSol:    env.NewFloat64Config(DefaultWithdrawAmountSolConfigEnvName, defaultDefaultWithdrawAmountSol),
			withdrawRateLimit:           env.NewFloat64Config(WithdrawRateLimitConfigEnvName, defaultWithdrawRateLimit),
			authorityKeyClientPublicKey: env.NewStringConfig(AuthorityKeyClientPublicKeyConfigEnvName, defaultAuthorityKeyClientPublicKey),
			authoritySecretKey:          env.NewStringConfig(AuthoritySecretKeyConfigEnvName, defaultAuthoritySecretKey),
			trustedProxies:              env.NewStringConfig(TrustedProxiesConfigEnvName, defaultTrustedProxies),
		}
	}
}

type testOverrides struct {
	defaultWithdrawAmountSol    float64
	withdrawRateLimit           float64
	authorityKeyClientPublicKey string
	authoritySecretKey          string
	trustedProxies              string
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			defaultWithdrawAmountSol:    wrapper.NewFloat64Config(memory.NewConfig(overrides.defaultWithdrawAmountSol), defaultDefaultWithdrawAmountSol),
			withdrawRateLimit:           wrapper.NewFloat64Config(memory.NewConfig(overrides.withdrawRateLimit), defaultWithdrawRateLimit),
			authorityKeyClientPublicKey: wrapper.NewStringConfig(memory.NewConfig(overrides.authorityKeyClientPublicKey), defaultAuthorityKeyClientPublicKey),
			authoritySecretKey:          wrapper.NewStringConfig(memory.NewConfig(overrides.authoritySecretKey), defaultAuthoritySecretKey),
			trustedProxies:              wrapper.NewStringConfig(memory.NewConfig(overrides.trustedProxies), defaultTrustedProxies),
		}
	}
}
