package smartwallet

import (
	"github.com/pkg/errors"

	"github.com/wiser-pay/wiser-server/pkg/solana"
	smart_wallet "github.com/wiser-pay/wiser-server/pkg/solana/smartwallet"
	"github.com/wiser-pay/wiser-server/pkg/wiser/vault"
)

var (
	ErrWalletAlreadyInitialized = errors.New("wallet is already initialized")
	ErrWalletNotInitialized     = errors.New("wallet account not initialized")
	ErrInvalidOwner             = errors.New("invalid owner for this wallet")
	ErrInvalidVaultAccount      = errors.New("invalid vault account")

	ErrWalletNotConnected = vault.ErrWalletNotConnected
	ErrInvalidInput       = vault.ErrInvalidInput
)

func mapProgramError(err error) error {
	var txErr *solana.TransactionError
	if !errors.As(err, &txErr) {
		return err
	}

	code := txErr.CustomError()
	if code == nil {
		return err
	}

	switch *code {
	case smart_wallet.ErrorInvalidOwner:
		return errors.Wrap(ErrInvalidOwner, err.Error())
	case smart_wallet.ErrorInvalidVaultAccount:
		return errors.Wrap(ErrInvalidVaultAccount, err.Error())
	}
	return err
}
