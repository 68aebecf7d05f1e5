package smartwallet

import (
	"github.com/wiser-pay/wiser-server/pkg/solana"
	"github.com/wiser-pay/wiser-server/pkg/solana/anchor"
)

type WalletError = solana.CustomError

const (
	// Invalid owner for this wallet
	ErrorInvalidOwner WalletError = anchor.ErrorCodeOffset + iota

	// Invalid vault account
	ErrorInvalidVaultAccount
)
