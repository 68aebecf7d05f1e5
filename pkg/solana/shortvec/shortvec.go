// Package shortvec implements the compact-u16 length prefix used by the
// Solana wire format.
package shortvec

import (
	"io"
	"math"

	"github.com/pkg/errors"
)

const maxEncodedBytes = 3

// EncodeLen writes length as a compact-u16 into w, returning the number of
// bytes written. Lengths outside [0, math.MaxUint16] are rejected.
func EncodeLen(w io.Writer, length int) (int, error) {
	if length < 0 || length > math.MaxUint16 {
		return 0, errors.Errorf("len %d outside of [0, %d]", length, math.MaxUint16)
	}

	var encoded [maxEncodedBytes]byte
	size := 0
	for {
		encoded[size] = byte(length & 0x7f)
		length >>= 7
		if length == 0 {
			size++
			break
		}
		encoded[size] |= 0x80
		size++
	}

	return w.Write(encoded[:size])
}

// DecodeLen reads a compact-u16 encoded length from r.
func DecodeLen(r io.Reader) (int, error) {
	var b [1]byte
	var val int

	for i := 0; i < maxEncodedBytes; i++ {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}

		val |= int(b[0]&0x7f) << (i * 7)
		if b[0]&0x80 == 0 {
			return val, nil
		}
	}

	return 0, errors.Errorf("invalid size: more than %d bytes", maxEncodedBytes)
}
