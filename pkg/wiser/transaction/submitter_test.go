package transaction

import (
	"context"
	"crypto/ed25519"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wiser-pay/wiser-server/pkg/solana"
	"github.com/wiser-pay/wiser-server/pkg/solana/memory"
	"github.com/wiser-pay/wiser-server/pkg/solana/system"
	"github.com/wiser-pay/wiser-server/pkg/testutil"
)

type testEnv struct {
	client *memory.Client
	signer *keySigner
	dest   ed25519.PublicKey

	mu          sync.Mutex
	transitions []Transition
	sleeps      []time.Duration
}

func setup(t *testing.T) *testEnv {
	return &testEnv{
		client: memory.NewClient(),
		signer: &keySigner{key: testutil.GenerateSolanaKeypair(t)},
		dest:   testutil.GenerateSolanaKeys(t, 1)[0],
	}
}

func (e *testEnv) submitter(opts ...Option) *Submitter {
	defaults := []Option{
		WithObserver(func(t Transition) {
			e.mu.Lock()
			e.transitions = append(e.transitions, t)
			e.mu.Unlock()
		}),
		WithSleeper(func(ctx context.Context, d time.Duration) error {
			e.mu.Lock()
			e.sleeps = append(e.sleeps, d)
			e.mu.Unlock()
			return ctx.Err()
		}),
		WithConfirmation(2*time.Second, 500*time.Millisecond),
	}
	return NewSubmitter(e.client, append(defaults, opts...)...)
}

func (e *testEnv) build(blockhash solana.Blockhash) (solana.Transaction, error) {
	pub := e.signer.PublicKey()
	txn := solana.NewTransaction(pub, system.Transfer(pub, e.dest, 100))
	txn.SetBlockhash(blockhash)
	return txn, nil
}

func (e *testEnv) states() []State {
	e.mu.Lock()
	defer e.mu.Unlock()

	states := make([]State, len(e.transitions))
	for i, t := range e.transitions {
		states[i] = t.State
	}
	return states
}

func (e *testEnv) signedBlockhashes() []solana.Blockhash {
	e.mu.Lock()
	defer e.mu.Unlock()

	var hashes []solana.Blockhash
	for _, t := range e.transitions {
		if t.State == StateSigning {
			hashes = append(hashes, t.Blockhash)
		}
	}
	return hashes
}

type keySigner struct {
	key ed25519.PrivateKey
	err error

	mu    sync.Mutex
	calls int
	seen  []solana.Blockhash
}

func (s *keySigner) PublicKey() ed25519.PublicKey {
	return s.key.Public().(ed25519.PublicKey)
}

func (s *keySigner) SignTransaction(_ context.Context, txn *solana.Transaction) error {
	s.mu.Lock()
	s.calls++
	s.seen = append(s.seen, txn.Message.RecentBlockhash)
	s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	return txn.Sign(s.key)
}

func TestSubmit_FirstAttempt(t *testing.T) {
	env := setup(t)

	res, err := env.submitter().Submit(context.Background(), env.signer, env.build)
	require.NoError(t, err)

	assert.EqualValues(t, 1, res.Attempts)
	submitted := env.client.Submitted()
	require.Len(t, submitted, 1)
	assert.Equal(t, submitted[0].Signature(), res.Signature)
	assert.Equal(t, submitted[0].Message.RecentBlockhash, res.Blockhash)

	assert.Equal(t, []State{StateBuilding, StateSigning, StateSubmitting, StateConfirming, StateDone}, env.states())
	assert.Empty(t, env.sleeps)
}

func TestSubmit_SignerBlockhashExpiredExhaustsAttempts(t *testing.T) {
	env := setup(t)
	env.signer.err = ErrBlockhashExpired

	res, err := env.submitter().Submit(context.Background(), env.signer, env.build)
	require.Error(t, err)
	assert.Nil(t, res)

	submitErr, ok := err.(*SubmitError)
	require.True(t, ok)
	assert.EqualValues(t, 3, submitErr.Attempts)
	assert.Equal(t, StateSigning, submitErr.State)
	assert.True(t, errors.Is(err, ErrBlockhashExpired))

	assert.Equal(t, 3, env.client.Calls(memory.MethodGetLatestBlockhash))
	assert.Equal(t, 0, env.client.Calls(memory.MethodSubmitTransaction))
	assert.Equal(t, 3, env.signer.calls)

	hashes := env.signer.seen
	require.Len(t, hashes, 3)
	assert.NotEqual(t, hashes[0], hashes[1])
	assert.NotEqual(t, hashes[1], hashes[2])
	assert.NotEqual(t, hashes[0], hashes[2])
	assert.Equal(t, hashes, env.signedBlockhashes())

	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, env.sleeps)

	states := env.states()
	assert.Equal(t, StateFailed, states[len(states)-1])
	var retries int
	for _, s := range states {
		if s == StateRetrying {
			retries++
		}
	}
	assert.Equal(t, 2, retries)
}

func TestSubmit_SignatureRejectedNotRetried(t *testing.T) {
	env := setup(t)
	rejection := errors.New("user rejected the request")
	env.signer.err = rejection

	_, err := env.submitter().Submit(context.Background(), env.signer, env.build)
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrSignatureRejected))
	assert.True(t, errors.Is(err, rejection))
	assert.Equal(t, 1, env.signer.calls)
	assert.Empty(t, env.sleeps)
}

func TestSubmit_BlockhashNotFoundRetriedWithFreshBlockhash(t *testing.T) {
	env := setup(t)

	var submissions int
	env.client.SetSubmitHandler(func(txn solana.Transaction) (*solana.SignatureStatus, error) {
		submissions++
		if submissions == 1 {
			return nil, solana.NewTransactionError(solana.TransactionErrorBlockhashNotFound)
		}
		return memory.ConfirmedStatus(), nil
	})

	res, err := env.submitter().Submit(context.Background(), env.signer, env.build)
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Attempts)
	assert.Equal(t, 2, submissions)

	hashes := env.signedBlockhashes()
	require.Len(t, hashes, 2)
	assert.NotEqual(t, hashes[0], hashes[1])
	assert.Equal(t, hashes[1], res.Blockhash)
}

func TestSubmit_OnChainFailure(t *testing.T) {
	env := setup(t)
	env.client.SetSubmitHandler(func(txn solana.Transaction) (*solana.SignatureStatus, error) {
		return memory.FailedStatus(0, solana.CustomError(1)), nil
	})

	_, err := env.submitter().Submit(context.Background(), env.signer, env.build)
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrInsufficientFunds))
	assert.Equal(t, 1, env.client.Calls(memory.MethodGetLatestBlockhash))

	var txErr *solana.TransactionError
	require.True(t, errors.As(err, &txErr))
	assert.Equal(t, solana.CustomError(1), *txErr.CustomError())
}

func TestSubmit_SeenSignatureNeverResubmitted(t *testing.T) {
	env := setup(t)
	env.client.SetSubmitHandler(func(txn solana.Transaction) (*solana.SignatureStatus, error) {
		return memory.ProcessedStatus(), nil
	})

	_, err := env.submitter(WithSettleTimeout(2*time.Second)).Submit(context.Background(), env.signer, env.build)
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrTransactionUnconfirmed))
	assert.False(t, IsRetriable(err))
	assert.Equal(t, 1, env.client.Calls(memory.MethodSubmitTransaction))
	assert.Equal(t, 1, env.client.Calls(memory.MethodGetLatestBlockhash))
	assert.EqualValues(t, 1, err.(*SubmitError).Attempts)
	assert.Equal(t, StateConfirming, err.(*SubmitError).State)
}

func TestSubmit_SeenSignatureExpiredBlockhashNotResubmitted(t *testing.T) {
	env := setup(t)
	env.client.SetSubmitHandler(func(txn solana.Transaction) (*solana.SignatureStatus, error) {
		return memory.ProcessedStatus(), nil
	})

	submitter := env.submitter(
		WithSettleTimeout(time.Second),
		WithObserver(func(t Transition) {
			if t.State == StateConfirming {
				env.client.ExpireBlockhash(t.Blockhash)
			}
		}),
	)

	_, err := submitter.Submit(context.Background(), env.signer, env.build)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransactionUnconfirmed))
	assert.Len(t, env.client.Submitted(), 1)
}

func TestSubmit_SeenSignatureConfirmsAfterTimeout(t *testing.T) {
	env := setup(t)
	env.client.SetSubmitHandler(func(txn solana.Transaction) (*solana.SignatureStatus, error) {
		return memory.ProcessedStatus(), nil
	})

	var sig solana.Signature
	var polls int
	submitter := env.submitter(
		WithObserver(func(t Transition) {
			if t.State == StateSubmitting {
				sig = t.Signature
			}
		}),
		WithSleeper(func(ctx context.Context, d time.Duration) error {
			polls++
			if polls == 6 {
				env.client.SetSignatureStatus(sig, memory.ConfirmedStatus())
			}
			return ctx.Err()
		}),
	)

	res, err := submitter.Submit(context.Background(), env.signer, env.build)
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Attempts)
	assert.Equal(t, sig, res.Signature)
	assert.Len(t, env.client.Submitted(), 1)
}

func TestSubmit_TimeoutRetriedOnlyOnceBlockhashExpires(t *testing.T) {
	env := setup(t)

	var submissions int
	env.client.SetSubmitHandler(func(txn solana.Transaction) (*solana.SignatureStatus, error) {
		submissions++
		if submissions == 1 {
			return nil, nil
		}
		return memory.ConfirmedStatus(), nil
	})

	var retryErr error
	var polls int
	submitter := env.submitter(
		WithSettleTimeout(2*time.Second),
		WithObserver(func(t Transition) {
			if t.State == StateRetrying {
				retryErr = t.Err
			}
		}),
		WithSleeper(func(ctx context.Context, d time.Duration) error {
			polls++
			if polls == 6 {
				env.client.ExpireAllBlockhashes()
			}
			return ctx.Err()
		}),
	)

	res, err := submitter.Submit(context.Background(), env.signer, env.build)
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Attempts)
	assert.Equal(t, 2, submissions)

	// The first attempt kept polling past the 2s timeout until its blockhash
	// was reported expired.
	assert.Equal(t, 7, polls)
	assert.True(t, errors.Is(retryErr, ErrTransactionTimeout))
}

func TestSubmit_BlockhashExpiresWhileConfirming(t *testing.T) {
	env := setup(t)
	env.client.SetSubmitHandler(func(txn solana.Transaction) (*solana.SignatureStatus, error) {
		return nil, nil
	})

	submitter := env.submitter(
		WithPolicy(SingleAttemptPolicy()),
		WithObserver(func(t Transition) {
			if t.State == StateConfirming {
				env.client.ExpireBlockhash(t.Blockhash)
			}
		}),
	)

	_, err := submitter.Submit(context.Background(), env.signer, env.build)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBlockhashExpired))
	assert.EqualValues(t, 1, err.(*SubmitError).Attempts)
}

func TestSubmit_LandedBeforeExpiry(t *testing.T) {
	env := setup(t)

	submitter := env.submitter(
		WithObserver(func(t Transition) {
			if t.State == StateConfirming {
				env.client.ExpireBlockhash(t.Blockhash)
			}
		}),
	)

	res, err := submitter.Submit(context.Background(), env.signer, env.build)
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Attempts)
}

func TestSubmit_UpstreamUnavailable(t *testing.T) {
	env := setup(t)
	env.client.SetError(memory.MethodGetLatestBlockhash, errors.New("connection refused"))

	_, err := env.submitter().Submit(context.Background(), env.signer, env.build)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstreamUnavailable))
	assert.Equal(t, 1, env.client.Calls(memory.MethodGetLatestBlockhash))
	assert.Equal(t, 0, env.signer.calls)
}

func TestSubmit_ContextCancelledDuringBackoff(t *testing.T) {
	env := setup(t)
	env.signer.err = ErrBlockhashExpired

	ctx, cancel := context.WithCancel(context.Background())
	submitter := env.submitter(WithSleeper(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	_, err := submitter.Submit(ctx, env.signer, env.build)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, env.signer.calls)
}

func TestSubmit_CustomPolicy(t *testing.T) {
	env := setup(t)
	env.signer.err = errors.New("flaky wallet")

	policy := Policy{
		MaxAttempts: 5,
		Retriable:   func(error) bool { return true },
	}

	_, err := env.submitter(WithPolicy(policy)).Submit(context.Background(), env.signer, env.build)
	require.Error(t, err)
	assert.EqualValues(t, 5, err.(*SubmitError).Attempts)
	assert.Len(t, env.sleeps, 4)
}
