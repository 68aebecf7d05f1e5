package anchor

import "github.com/wiser-pay/wiser-server/pkg/solana"

// Framework error codes that the services react to.
//
// Reference: https://github.com/coral-xyz/anchor/blob/v0.29.0/lang/src/error.rs
const (
	ErrorConstraintSeeds              solana.CustomError = 2006
	ErrorAccountDiscriminatorNotFound solana.CustomError = 3001
	ErrorAccountNotInitialized        solana.CustomError = 3012
)

// IsProgramError reports whether code lies in the program defined range.
func IsProgramError(code solana.CustomError) bool {
	return code >= ErrorCodeOffset
}
