package web

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wiser-pay/wiser-server/pkg/currency"
	currency_memory "github.com/wiser-pay/wiser-server/pkg/currency/memory"
	"github.com/wiser-pay/wiser-server/pkg/solana"
	"github.com/wiser-pay/wiser-server/pkg/solana/memory"
	vault_program "github.com/wiser-pay/wiser-server/pkg/solana/vault"
	"github.com/wiser-pay/wiser-server/pkg/testutil"
	"github.com/wiser-pay/wiser-server/pkg/wiser/authority"
	"github.com/wiser-pay/wiser-server/pkg/wiser/common"
	"github.com/wiser-pay/wiser-server/pkg/wiser/transaction"
	"github.com/wiser-pay/wiser-server/pkg/wiser/vault"
)

type testEnv struct {
	client       *memory.Client
	prices       *currency_memory.Client
	accounts     *common.VaultAccounts
	authorityKey ed25519.PrivateKey
	handler      http.Handler
}

func setup(t *testing.T, overrides *testOverrides) *testEnv {
	program, err := common.NewAccountFromPublicKeyBytes(vault_program.PROGRAM_ID)
	require.NoError(t, err)
	accounts, err := program.GetVaultAccounts()
	require.NoError(t, err)

	env := &testEnv{
		client:       memory.NewClient(),
		prices:       currency_memory.NewClient(100),
		accounts:     accounts,
		authorityKey: testutil.GenerateSolanaKeypair(t),
	}

	manager := authority.NewManager(authority.SourceFunc(func(context.Context) (ed25519.PrivateKey, error) {
		if env.authorityKey == nil {
			return nil, authority.ErrNoKeyConfigured
		}
		return env.authorityKey, nil
	}))

	submitter := transaction.NewSubmitter(
		env.client,
		transaction.WithSleeper(func(ctx context.Context, _ time.Duration) error {
			return ctx.Err()
		}),
		transaction.WithConfirmation(time.Second, 500*time.Millisecond),
	)

	server := NewServer(
		withManualTestOverrides(overrides),
		currency.NewQuoter(env.prices),
		vault.NewBalanceReader(env.client, accounts, solana.CommitmentConfirmed),
		vault.NewWithdrawService(env.client, accounts, manager, submitter),
		vault.NewInitializer(env.client, accounts, manager, submitter),
		manager,
	)
	env.handler = server.Handler()
	return env
}

func defaultOverrides() *testOverrides {
	return &testOverrides{
		defaultWithdrawAmountSol: 0.5,
		withdrawRateLimit:        1000,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers ...string) (int, map[string]interface{}) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec.Code, decoded
}

func (e *testEnv) fundVault(lamports uint64) {
	testutil.FundVault(e.client, e.accounts, lamports)
}

func TestHealth(t *testing.T) {
	env := setup(t, defaultOverrides())

	status, body := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestRequestID(t *testing.T) {
	env := setup(t, defaultOverrides())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "abc")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-Id"))
}

func TestQuote(t *testing.T) {
	env := setup(t, defaultOverrides())

	status, body := env.do(t, http.MethodPost, "/v1/quote", map[string]interface{}{"usdAmount": 50})
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 50, body["usdAmount"])
	assert.EqualValues(t, 100, body["solUsdPrice"])
	assert.EqualValues(t, 0.5, body["solEquivalent"])
}

func TestQuote_InvalidInput(t *testing.T) {
	env := setup(t, defaultOverrides())

	for _, req := range []interface{}{
		nil,
		map[string]interface{}{},
		map[string]interface{}{"usdAmount": 0},
		map[string]interface{}{"usdAmount": -5},
		map[string]interface{}{"usdAmount": "ten"},
	} {
		status, body := env.do(t, http.MethodPost, "/v1/quote", req)
		assert.Equal(t, http.StatusBadRequest, status, req)
		assert.NotEmpty(t, body["error"])
	}
	assert.Zero(t, env.prices.Calls())
}

func TestQuote_UpstreamFailures(t *testing.T) {
	env := setup(t, defaultOverrides())

	env.prices.SetError(currency.ErrUpstreamUnavailable)
	status, _ := env.do(t, http.MethodPost, "/v1/quote", map[string]interface{}{"usdAmount": 10})
	assert.Equal(t, http.StatusBadGateway, status)

	env.prices.SetError(nil)
	env.prices.SetPrice(0)
	status, _ = env.do(t, http.MethodPost, "/v1/quote", map[string]interface{}{"usdAmount": 10})
	assert.Equal(t, http.StatusBadGateway, status)
}

func TestVaultInfo(t *testing.T) {
	env := setup(t, defaultOverrides())

	status, body := env.do(t, http.MethodGet, "/v1/vault", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, env.accounts.Vault.String(), body["address"])
	assert.Equal(t, false, body["initialized"])
	assert.EqualValues(t, 0, body["balance"])

	env.fundVault(solana.LamportsPerSol)

	status, body = env.do(t, http.MethodGet, "/v1/vault", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["initialized"])
	assert.Greater(t, body["balance"], 1.0)
}

func TestBalance(t *testing.T) {
	env := setup(t, defaultOverrides())
	owner := testutil.GenerateSolanaKeys(t, 1)[0]
	env.client.SetBalance(owner, 3*solana.LamportsPerSol/2)

	status, body := env.do(t, http.MethodGet, "/v1/balance/"+base58.Encode(owner), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, base58.Encode(owner), body["address"])
	assert.EqualValues(t, 1.5, body["balance"])

	status, _ = env.do(t, http.MethodGet, "/v1/balance/not-an-address", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	env.client.SetError(memory.MethodGetBalance, solana.ErrNoBalance)
	status, body = env.do(t, http.MethodGet, "/v1/balance/"+base58.Encode(owner), nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, body["balance"])
}

func TestAuthorityPublicKey(t *testing.T) {
	env := setup(t, defaultOverrides())

	status, body := env.do(t, http.MethodGet, "/v1/authority", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, base58.Encode(env.authorityKey.Public().(ed25519.PublicKey)), body["publicKey"])
}

func TestAuthorityPublicKey_NotConfigured(t *testing.T) {
	env := setup(t, defaultOverrides())
	env.authorityKey = nil

	status, body := env.do(t, http.MethodGet, "/v1/authority", nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, vault.ErrAuthorityNotInitialized.Error(), body["error"])
}

func TestWithdraw(t *testing.T) {
	env := setup(t, defaultOverrides())
	env.fundVault(solana.LamportsPerSol)
	recipient := testutil.GenerateSolanaKeys(t, 1)[0]

	status, body := env.do(t, http.MethodPost, "/v1/withdraw", map[string]interface{}{
		"recipient": base58.Encode(recipient),
		"amount":    0.25,
	})
	require.Equal(t, http.StatusOK, status)

	submitted := env.client.Submitted()
	require.Len(t, submitted, 1)
	assert.Equal(t, submitted[0].Signature().String(), body["signature"])

	args, _, err := vault_program.WithdrawInstructionFromLegacyInstruction(vault_program.PROGRAM_ID, submitted[0], 0)
	require.NoError(t, err)
	assert.EqualValues(t, solana.LamportsPerSol/4, args.Amount)
}

func TestWithdraw_DefaultAmount(t *testing.T) {
	env := setup(t, defaultOverrides())
	env.fundVault(solana.LamportsPerSol)
	recipient := testutil.GenerateSolanaKeys(t, 1)[0]

	status, _ := env.do(t, http.MethodPost, "/v1/withdraw", map[string]interface{}{
		"recipient": base58.Encode(recipient),
	})
	require.Equal(t, http.StatusOK, status)

	submitted := env.client.Submitted()
	require.Len(t, submitted, 1)
	args, _, err := vault_program.WithdrawInstructionFromLegacyInstruction(vault_program.PROGRAM_ID, submitted[0], 0)
	require.NoError(t, err)
	assert.EqualValues(t, solana.LamportsPerSol/2, args.Amount)
}

func TestWithdraw_Rejections(t *testing.T) {
	env := setup(t, defaultOverrides())
	env.fundVault(solana.LamportsPerSol / 10)
	recipient := base58.Encode(testutil.GenerateSolanaKeys(t, 1)[0])

	status, body := env.do(t, http.MethodPost, "/v1/withdraw", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Recipient address is required", body["error"])

	status, _ = env.do(t, http.MethodPost, "/v1/withdraw", map[string]interface{}{"recipient": "bogus"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, "/v1/withdraw", map[string]interface{}{"recipient": recipient, "amount": -1})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, "/v1/withdraw", map[string]interface{}{"recipient": recipient, "amount": 0.5})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	assert.Equal(t, 0, env.client.Calls(memory.MethodSubmitTransaction))
}

func TestWithdraw_RateLimited(t *testing.T) {
	overrides := defaultOverrides()
	overrides.withdrawRateLimit = 0.2
	env := setup(t, overrides)
	env.fundVault(solana.LamportsPerSol)
	recipient := base58.Encode(testutil.GenerateSolanaKeys(t, 1)[0])

	status, _ := env.do(t, http.MethodPost, "/v1/withdraw", map[string]interface{}{"recipient": recipient, "amount": 0.1})
	require.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodPost, "/v1/withdraw", map[string]interface{}{"recipient": recipient, "amount": 0.1})
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Len(t, env.client.Submitted(), 1)
}

func TestInitialize(t *testing.T) {
	env := setup(t, defaultOverrides())

	status, body := env.do(t, http.MethodPost, "/v1/withdraw/initialize", nil)
	require.Equal(t, http.StatusOK, status)

	submitted := env.client.Submitted()
	require.Len(t, submitted, 1)
	assert.Equal(t, submitted[0].Signature().String(), body["signature"])

	env.fundVault(0)
	status, _ = env.do(t, http.MethodPost, "/v1/withdraw/initialize", nil)
	assert.Equal(t, http.StatusConflict, status)
}

func TestAuthorityKey(t *testing.T) {
	secret := base58.Encode(testutil.GenerateSolanaKeypair(t))
	client := testutil.GenerateSolanaKeypair(t)
	stranger := testutil.GenerateSolanaKeypair(t)

	overrides := defaultOverrides()
	env := setup(t, overrides)
	status, _ := env.do(t, http.MethodGet, "/v1/internal/authority-key", nil)
	assert.Equal(t, http.StatusNotFound, status)

	overrides.authorityKeyClientPublicKey = base58.Encode(client.Public().(ed25519.PublicKey))
	env = setup(t, overrides)

	token, err := authority.NewKeyRequestToken(client, time.Now())
	require.NoError(t, err)
	forged, err := authority.NewKeyRequestToken(stranger, time.Now())
	require.NoError(t, err)

	status, _ = env.do(t, http.MethodGet, "/v1/internal/authority-key", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, http.MethodGet, "/v1/internal/authority-key", nil, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, http.MethodGet, "/v1/internal/authority-key", nil, "Authorization", "Bearer "+forged)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := env.do(t, http.MethodGet, "/v1/internal/authority-key", nil, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Private key not configured", body["error"])

	overrides.authoritySecretKey = secret
	env = setup(t, overrides)
	logs := testutil.CaptureLogs(t)

	status, body = env.do(t, http.MethodGet, "/internal/authority-key", nil, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, secret, body["key"])

	var served bool
	for _, entry := range logs.AllEntries() {
		if entry.Message == "authority key served" {
			served = true
			assert.Equal(t, "192.0.2.1", entry.Data["peer"])
			assert.NotContains(t, entry.Data, "key")
		}
	}
	assert.True(t, served)
}

func TestAuthorityKey_InvalidClientKeyConfigured(t *testing.T) {
	overrides := defaultOverrides()
	overrides.authorityKeyClientPublicKey = "not-a-key"
	overrides.authoritySecretKey = base58.Encode(testutil.GenerateSolanaKeypair(t))
	env := setup(t, overrides)

	status, _ := env.do(t, http.MethodGet, "/v1/internal/authority-key", nil, "Authorization", "Bearer anything")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRoutesMountedAtRoot(t *testing.T) {
	env := setup(t, defaultOverrides())

	status, body := env.do(t, http.MethodPost, "/withdraw/initialize", nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["signature"])

	env.fundVault(solana.LamportsPerSol)
	recipient := base58.Encode(testutil.GenerateSolanaKeys(t, 1)[0])

	status, body = env.do(t, http.MethodPost, "/withdraw", map[string]interface{}{"recipient": recipient, "amount": 0.1})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["signature"])

	status, _ = env.do(t, http.MethodGet, "/vault", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodPost, "/quote", map[string]interface{}{"usdAmount": 10})
	assert.Equal(t, http.StatusOK, status)
}

func TestWithdraw_RateLimitIgnoresForwardedHeaders(t *testing.T) {
	overrides := defaultOverrides()
	overrides.withdrawRateLimit = 0.2
	env := setup(t, overrides)
	env.fundVault(solana.LamportsPerSol)
	recipient := base58.Encode(testutil.GenerateSolanaKeys(t, 1)[0])

	status, _ := env.do(t, http.MethodPost, "/withdraw", map[string]interface{}{"recipient": recipient, "amount": 0.1},
		"X-Forwarded-For", "1.1.1.1", "X-Real-IP", "1.1.1.1")
	require.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodPost, "/withdraw", map[string]interface{}{"recipient": recipient, "amount": 0.1},
		"X-Forwarded-For", "2.2.2.2", "X-Real-IP", "2.2.2.2")
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Len(t, env.client.Submitted(), 1)
}

func TestClientIP(t *testing.T) {
	trusted, err := parseTrustedProxies("10.0.0.0/8, 192.168.1.1")
	require.NoError(t, err)
	s := &Server{trustedProxies: trusted}

	for _, tc := range []struct {
		peer      string
		forwarded string
		expected  string
	}{
		{peer: "10.0.0.5:1234", forwarded: "1.2.3.4, 10.0.0.7", expected: "1.2.3.4"},
		{peer: "192.168.1.1:443", forwarded: "9.9.9.9, 1.2.3.4", expected: "1.2.3.4"},
		{peer: "10.0.0.5:1234", forwarded: "", expected: "10.0.0.5"},
		{peer: "10.0.0.5:1234", forwarded: "garbage", expected: "10.0.0.5"},
		{peer: "10.0.0.5:1234", forwarded: "10.0.0.8, 10.0.0.9", expected: "10.0.0.5"},
		{peer: "5.6.7.8:1234", forwarded: "1.2.3.4", expected: "5.6.7.8"},
		{peer: "192.168.1.2:1234", forwarded: "1.2.3.4", expected: "192.168.1.2"},
	} {
		req := httptest.NewRequest(http.MethodPost, "/withdraw", nil)
		req.RemoteAddr = tc.peer
		if len(tc.forwarded) > 0 {
			req.Header.Set("X-Forwarded-For", tc.forwarded)
		}
		assert.Equal(t, tc.expected, s.clientIP(req), "peer=%s forwarded=%s", tc.peer, tc.forwarded)
	}

	untrusting := &Server{}
	req := httptest.NewRequest(http.MethodPost, "/withdraw", nil)
	req.RemoteAddr = "10.0.0.5:1234"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	assert.Equal(t, "10.0.0.5", untrusting.clientIP(req))
}

func TestParseTrustedProxies(t *testing.T) {
	networks, err := parseTrustedProxies("")
	require.NoError(t, err)
	assert.Empty(t, networks)

	networks, err = parseTrustedProxies("10.0.0.0/8,::1, 127.0.0.1")
	require.NoError(t, err)
	require.Len(t, networks, 3)
	assert.Equal(t, "10.0.0.0/8", networks[0].String())
	assert.Equal(t, "::1/128", networks[1].String())
	assert.Equal(t, "127.0.0.1/32", networks[2].String())

	for _, invalid := range []string{"not-an-ip", "10.0.0.0/99", "1.2.3.4,nope"} {
		_, err = parseTrustedProxies(invalid)
		assert.Error(t, err, invalid)
	}
}

func TestStatusFromError(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFromError(common.ErrInvalidAddress))
	assert.Equal(t, http.StatusConflict, statusFromError(vault.ErrAlreadyInitialized))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFromError(&vault.DepositFailedError{Attempts: 3, Err: vault.ErrInsufficientFunds}))
	assert.Equal(t, http.StatusBadGateway, statusFromError(vault.ErrUpstreamUnavailable))
	assert.Equal(t, http.StatusGatewayTimeout, statusFromError(errors.Wrap(vault.ErrTransactionUnconfirmed, "error submitting withdrawal")))
	assert.Equal(t, http.StatusInternalServerError, statusFromError(context.Canceled))
}
