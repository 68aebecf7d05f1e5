package vault

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/wiser-pay/wiser-server/pkg/solana"
	vault_program "github.com/wiser-pay/wiser-server/pkg/solana/vault"
	"github.com/wiser-pay/wiser-server/pkg/wiser/authority"
	"github.com/wiser-pay/wiser-server/pkg/wiser/transaction"
)

var (
	ErrInvalidInput             = errors.New("invalid input")
	ErrWalletNotConnected       = errors.New("wallet not connected")
	ErrInvalidRecipient         = errors.New("invalid recipient address")
	ErrVaultInsufficientBalance = errors.New("vault balance is insufficient")
	ErrAlreadyInitialized       = errors.New("vault already initialized")
	ErrBalanceReadFailed        = errors.New("balance read failed")

	ErrInsufficientFunds       = transaction.ErrInsufficientFunds
	ErrUpstreamUnavailable     = transaction.ErrUpstreamUnavailable
	ErrTransactionUnconfirmed  = transaction.ErrTransactionUnconfirmed
	ErrAuthorityNotInitialized = authority.ErrAuthorityNotInitialized
)

// system program custom error returned when creating an account that exists
const systemErrorAccountAlreadyInUse solana.CustomError = 0

// DepositFailedError is returned when a deposit could not be confirmed. Err
// is the error of the final attempt.
type DepositFailedError struct {
	Attempts uint
	Err      error
}

func (e *DepositFailedError) Error() string {
	return fmt.Sprintf("deposit failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *DepositFailedError) Unwrap() error {
	return e.Err
}

func (e *DepositFailedError) Cause() error {
	return e.Err
}

func invalidInput(err error) error {
	return errors.Wrap(ErrInvalidInput, err.Error())
}

func upstreamUnavailable(err error, msg string) error {
	return errors.Wrapf(ErrUpstreamUnavailable, "%s: %v", msg, err)
}

func programErrorCode(err error) *solana.CustomError {
	var txErr *solana.TransactionError
	if !errors.As(err, &txErr) {
		return nil
	}
	return txErr.CustomError()
}

func isVaultInsufficientFunds(err error) bool {
	code := programErrorCode(err)
	return code != nil && *code == vault_program.ErrorInsufficientFunds
}

func isAlreadyInitialized(err error) bool {
	var txErr *solana.TransactionError
	if !errors.As(err, &txErr) {
		return false
	}

	ixErr := txErr.InstructionError()
	if ixErr == nil {
		return false
	}
	if ixErr.ErrorKey() == solana.InstructionErrorAccountAlreadyInitialized {
		return true
	}

	code := ixErr.CustomError()
	return code != nil && *code == systemErrorAccountAlreadyInUse
}
