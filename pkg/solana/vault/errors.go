package vault

import (
	"github.com/wiser-pay/wiser-server/pkg/solana"
	"github.com/wiser-pay/wiser-server/pkg/solana/anchor"
)

type VaultError = solana.CustomError

const (
	// Insufficient funds in the vault
	ErrorInsufficientFunds VaultError = anchor.ErrorCodeOffset + iota
)
