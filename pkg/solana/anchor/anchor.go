// Package anchor contains the encoding conventions shared by programs built
// with the Anchor framework.
package anchor

import (
	"bytes"
	"crypto/sha256"

	"github.com/wiser-pay/wiser-server/pkg/solana"
)

// DiscriminatorSize is the length of the prefix on every Anchor instruction
// and account.
const DiscriminatorSize = 8

// ErrorCodeOffset is the first custom error code used by program defined
// errors. Codes below it are reserved by the framework.
const ErrorCodeOffset solana.CustomError = 6000

// InstructionDiscriminator returns the instruction prefix for the snake_case
// instruction name.
func InstructionDiscriminator(name string) []byte {
	return discriminator("global", name)
}

// AccountDiscriminator returns the account data prefix for the CamelCase
// account type name.
func AccountDiscriminator(name string) []byte {
	return discriminator("account", name)
}

// HasDiscriminator reports whether data begins with the expected prefix.
func HasDiscriminator(data, expected []byte) bool {
	return len(data) >= DiscriminatorSize && bytes.Equal(data[:DiscriminatorSize], expected)
}

func discriminator(namespace, name string) []byte {
	h := sha256.Sum256([]byte(namespace + ":" + name))
	return h[:DiscriminatorSize]
}
