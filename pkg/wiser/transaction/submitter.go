// Package transaction submits transactions through an explicit state machine
// that fetches a fresh blockhash for every attempt.
package transaction

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wiser-pay/wiser-server/pkg/metrics"
	"github.com/wiser-pay/wiser-server/pkg/retry"
	"github.com/wiser-pay/wiser-server/pkg/solana"
)

const (
	metricsStructName = "transaction.submitter"

	submitAttemptsMetricName = "Transaction/SubmitAttempts"
	submitEventName          = "TransactionSubmitted"

	defaultConfirmTimeout = 60 * time.Second
	defaultPollInterval   = 500 * time.Millisecond
	defaultSettleTimeout  = 90 * time.Second
)

// Signer signs transactions on behalf of one account.
type Signer interface {
	PublicKey() ed25519.PublicKey
	SignTransaction(ctx context.Context, txn *solana.Transaction) error
}

// BuildFunc builds the unsigned transaction for one attempt.
type BuildFunc func(blockhash solana.Blockhash) (solana.Transaction, error)

// Result describes a confirmed submission.
type Result struct {
	Signature solana.Signature
	Blockhash solana.Blockhash
	Attempts  uint
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithPolicy sets the retry policy.
func WithPolicy(policy Policy) Option {
	return func(s *Submitter) {
		s.policy = policy.withDefaults()
	}
}

// WithObserver sets a hook receiving every state transition.
func WithObserver(observer Observer) Option {
	return func(s *Submitter) {
		s.observer = observer
	}
}

// WithSleeper replaces the function used to wait between attempts and polls.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Submitter) {
		s.sleep = sleep
	}
}

// WithConfirmation sets how long confirmation is awaited, and how often the
// signature status is polled.
func WithConfirmation(timeout, pollInterval time.Duration) Option {
	return func(s *Submitter) {
		s.confirmTimeout = timeout
		s.pollInterval = pollInterval
	}
}

// WithSettleTimeout sets how much longer than the confirmation timeout a
// signature that may still land is tracked before giving up on it.
func WithSettleTimeout(timeout time.Duration) Option {
	return func(s *Submitter) {
		s.settleTimeout = timeout
	}
}

// WithCommitment sets the commitment used for blockhashes, preflight and
// confirmation.
func WithCommitment(commitment solana.Commitment) Option {
	return func(s *Submitter) {
		s.commitment = commitment
	}
}

// Submitter drives Building -> Signing -> Submitting -> Confirming for a
// transaction, retrying according to its Policy.
type Submitter struct {
	log    *logrus.Entry
	client solana.Client

	commitment     solana.Commitment
	policy         Policy
	confirmTimeout time.Duration
	settleTimeout  time.Duration
	pollInterval   time.Duration

	sleep    func(ctx context.Context, d time.Duration) error
	observer Observer
}

func NewSubmitter(client solana.Client, opts ...Option) *Submitter {
	s := &Submitter{
		log:            logrus.StandardLogger().WithField("type", "wiser/transaction"),
		client:         client,
		commitment:     solana.CommitmentConfirmed,
		policy:         DefaultPolicy(),
		confirmTimeout: defaultConfirmTimeout,
		settleTimeout:  defaultSettleTimeout,
		pollInterval:   defaultPollInterval,
		sleep:          retry.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Commitment returns the commitment the submitter confirms at.
func (s *Submitter) Commitment() solana.Commitment {
	return s.commitment
}

// Submit builds, signs, submits and confirms a transaction. Every attempt
// fetches a new blockhash and rebuilds the transaction. On failure a
// *SubmitError carrying the last attempt's error is returned.
func (s *Submitter) Submit(ctx context.Context, signer Signer, build BuildFunc) (*Result, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Submit")
	defer tracer.End()

	log := s.log.WithFields(logrus.Fields{
		"method":     "Submit",
		"submission": uuid.NewString(),
	})
	if pub := signer.PublicKey(); pub != nil {
		log = log.WithField("signer", base58.Encode(pub))
	}

	for attempt := uint(1); ; attempt++ {
		res, state, err := s.attempt(ctx, attempt, signer, build)
		if err == nil {
			log.WithFields(logrus.Fields{
				"attempt":   attempt,
				"signature": res.Signature.String(),
			}).Debug("transaction confirmed")

			s.record(ctx, attempt, "confirmed")
			tracer.AddAttribute("attempts", attempt)
			return res, nil
		}

		log := log.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt,
			"state":   state.String(),
		})

		if ctx.Err() == nil && attempt < s.policy.MaxAttempts && s.policy.Retriable(err) {
			s.notify(Transition{Attempt: attempt, State: StateRetrying, Err: err})
			log.Info("transaction attempt failed, retrying")

			if sleepErr := s.sleep(ctx, s.policy.Backoff(attempt)); sleepErr != nil {
				err = sleepErr
			} else {
				continue
			}
		}

		s.notify(Transition{Attempt: attempt, State: StateFailed, Err: err})
		log.Info("transaction failed")

		s.record(ctx, attempt, "failed")
		submitErr := &SubmitError{Attempts: attempt, State: state, Err: err}
		tracer.OnError(submitErr)
		return nil, submitErr
	}
}

func (s *Submitter) attempt(ctx context.Context, attempt uint, signer Signer, build BuildFunc) (*Result, State, error) {
	transition := Transition{Attempt: attempt, State: StateBuilding}
	s.notify(transition)

	if err := ctx.Err(); err != nil {
		return nil, StateBuilding, err
	}

	blockhash, err := s.client.GetLatestBlockhash(s.commitment)
	if err != nil {
		return nil, StateBuilding, classify(ErrUpstreamUnavailable, errors.Wrap(err, "error getting latest blockhash"))
	}
	transition.Blockhash = blockhash

	txn, err := build(blockhash)
	if err != nil {
		return nil, StateBuilding, errors.Wrap(err, "error building transaction")
	}
	txn.SetBlockhash(blockhash)

	transition.State = StateSigning
	s.notify(transition)

	if err := signer.SignTransaction(ctx, &txn); err != nil {
		if ctx.Err() != nil {
			return nil, StateSigning, ctx.Err()
		}
		if isClassified(err) {
			return nil, StateSigning, err
		}
		return nil, StateSigning, classify(ErrSignatureRejected, err)
	}
	if !txn.IsFullySigned() {
		return nil, StateSigning, classify(ErrSignatureRejected, errors.New("transaction is missing signatures"))
	}
	if txn.Message.RecentBlockhash != blockhash {
		return nil, StateSigning, errors.New("signer changed the transaction blockhash")
	}

	transition.State = StateSubmitting
	transition.Signature = txn.Signature()
	s.notify(transition)

	sig, err := s.client.SubmitTransaction(txn, s.commitment)
	if err != nil {
		var txErr *solana.TransactionError
		if errors.As(err, &txErr) {
			return nil, StateSubmitting, Classify(err)
		}
		return nil, StateSubmitting, classify(ErrUpstreamUnavailable, errors.Wrap(err, "error submitting transaction"))
	}

	transition.State = StateConfirming
	s.notify(transition)

	if err := s.confirm(ctx, sig, blockhash); err != nil {
		return nil, StateConfirming, err
	}

	transition.State = StateDone
	s.notify(transition)

	return &Result{
		Signature: sig,
		Blockhash: blockhash,
		Attempts:  attempt,
	}, StateDone, nil
}

// confirm polls until the signature reaches the submitter's commitment. The
// blockhash validity is read before the status, so a transaction that landed
// just before expiry is still reported as confirmed.
//
// A retriable error is only returned once the blockhash is known to be
// expired and the signature was never seen, since only then can the
// transaction no longer land. A signature that was seen, or whose blockhash
// is still valid at the confirmation timeout, is tracked for up to the settle
// timeout, after which ErrTransactionUnconfirmed is returned.
func (s *Submitter) confirm(ctx context.Context, sig solana.Signature, blockhash solana.Blockhash) error {
	var waited time.Duration
	var seen bool
	for {
		valid, validErr := s.client.IsBlockhashValid(blockhash, s.commitment)

		statuses, err := s.client.GetSignatureStatuses([]solana.Signature{sig})
		if err != nil {
			s.log.WithError(err).WithField("signature", sig.String()).Debug("failed to get signature status")
		} else if len(statuses) > 0 && statuses[0] != nil {
			status := statuses[0]
			if status.ErrorResult != nil {
				return Classify(status.ErrorResult)
			}
			if status.Reached(s.commitment) {
				return nil
			}
			seen = true
		}

		expired := validErr == nil && !valid
		if expired && !seen {
			if waited >= s.confirmTimeout {
				return classify(ErrTransactionTimeout, errors.Errorf("%s not confirmed within %s and blockhash %s expired", sig, s.confirmTimeout, blockhash))
			}
			return classify(ErrBlockhashExpired, errors.Errorf("blockhash %s expired before %s confirmed", blockhash, sig))
		}

		if waited >= s.confirmTimeout+s.settleTimeout {
			return classify(ErrTransactionUnconfirmed, errors.Errorf("%s not confirmed within %s (seen: %t, blockhash expired: %t)", sig, s.confirmTimeout+s.settleTimeout, seen, expired))
		}

		if err := s.sleep(ctx, s.pollInterval); err != nil {
			return err
		}
		waited += s.pollInterval
	}
}

func (s *Submitter) notify(t Transition) {
	if s.observer != nil {
		s.observer(t)
	}
}

func (s *Submitter) record(ctx context.Context, attempts uint, outcome string) {
	metrics.RecordCount(ctx, submitAttemptsMetricName, uint64(attempts))
	metrics.RecordEvent(ctx, submitEventName, map[string]interface{}{
		"attempts": attempts,
		"outcome":  outcome,
	})
}
