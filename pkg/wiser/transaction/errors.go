package transaction

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/wiser-pay/wiser-server/pkg/solana"
)

var (
	ErrBlockhashExpired    = errors.New("blockhash expired")
	ErrTransactionTimeout  = errors.New("transaction confirmation timed out")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrSignatureRejected   = errors.New("signature rejected")
	ErrUpstreamUnavailable = errors.New("rpc node unavailable")
	ErrTransactionFailed   = errors.New("transaction failed")

	// ErrTransactionUnconfirmed means a submitted transaction may still land.
	// It is never retried.
	ErrTransactionUnconfirmed = errors.New("transaction outcome unknown")
)

// system program custom error for a transfer exceeding the source balance
const systemErrorResultWithNegativeLamports solana.CustomError = 1

// classifiedError attaches a taxonomy error to an underlying cause. Both
// match with errors.Is, and errors.As still reaches the cause.
type classifiedError struct {
	kind  error
	cause error
}

func (e *classifiedError) Error() string {
	return fmt.Sprintf("%s: %s", e.kind.Error(), e.cause.Error())
}

func (e *classifiedError) Is(target error) bool {
	return target == e.kind
}

func (e *classifiedError) Unwrap() error {
	return e.cause
}

func classify(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return &classifiedError{kind: kind, cause: cause}
}

// Classify maps a chain or RPC error onto the error taxonomy. Errors already
// classified, and errors it does not recognize, are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if isClassified(err) {
		return err
	}

	var txErr *solana.TransactionError
	if !errors.As(err, &txErr) {
		return err
	}

	switch txErr.ErrorKey() {
	case solana.TransactionErrorBlockhashNotFound:
		return classify(ErrBlockhashExpired, err)
	case solana.TransactionErrorInsufficientFundsForFee:
		return classify(ErrInsufficientFunds, err)
	case solana.TransactionErrorMissingSignatureForFee, solana.TransactionErrorSignatureFailure:
		return classify(ErrSignatureRejected, err)
	}

	if ixErr := txErr.InstructionError(); ixErr != nil {
		if ixErr.ErrorKey() == solana.InstructionErrorInsufficientFunds {
			return classify(ErrInsufficientFunds, err)
		}
		if code := ixErr.CustomError(); code != nil && *code == systemErrorResultWithNegativeLamports {
			return classify(ErrInsufficientFunds, err)
		}
	}

	return classify(ErrTransactionFailed, err)
}

// IsRetriable reports whether err is of the blockhash or timeout class.
func IsRetriable(err error) bool {
	return errors.Is(err, ErrBlockhashExpired) || errors.Is(err, ErrTransactionTimeout)
}

func isClassified(err error) bool {
	for _, kind := range []error{
		ErrBlockhashExpired,
		ErrTransactionTimeout,
		ErrInsufficientFunds,
		ErrSignatureRejected,
		ErrUpstreamUnavailable,
		ErrTransactionFailed,
		ErrTransactionUnconfirmed,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// SubmitError is returned when a submission does not complete. Err is the
// error from the final attempt.
type SubmitError struct {
	Attempts uint
	State    State
	Err      error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("transaction not confirmed after %d attempt(s) (%s): %v", e.Attempts, e.State, e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

func (e *SubmitError) Cause() error {
	return e.Err
}
