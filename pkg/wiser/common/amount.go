package common

import (
	"math"

	"github.com/pkg/errors"

	"github.com/wiser-pay/wiser-server/pkg/solana"
)

// ErrInvalidAmount indicates a SOL amount that is not positive, not finite
// or rounds down to zero lamports
var ErrInvalidAmount = errors.New("amount must be a positive number of SOL")

// SolToLamports converts a SOL amount to lamports, rounding down.
func SolToLamports(amount float64) (uint64, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, ErrInvalidAmount
	}

	lamports := math.Floor(amount * solana.LamportsPerSol)
	if lamports < 1 || lamports >= math.MaxUint64 {
		return 0, ErrInvalidAmount
	}
	return uint64(lamports), nil
}

// LamportsToSol converts lamports to whole SOL.
func LamportsToSol(lamports uint64) float64 {
	return float64(lamports) / solana.LamportsPerSol
}
