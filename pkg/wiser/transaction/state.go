package transaction

import (
	"github.com/wiser-pay/wiser-server/pkg/solana"
)

// State is a step of the submission state machine:
//
//	Building -> Signing -> Submitting -> Confirming -> Done
//	    any step -> Retrying -> Building
//	    any step -> Failed
type State int

const (
	StateBuilding State = iota
	StateSigning
	StateSubmitting
	StateConfirming
	StateRetrying
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateSigning:
		return "signing"
	case StateSubmitting:
		return "submitting"
	case StateConfirming:
		return "confirming"
	case StateRetrying:
		return "retrying"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Transition describes entering State during an attempt. Blockhash and
// Signature are populated once known for the attempt; Err is set when
// entering StateRetrying or StateFailed.
type Transition struct {
	Attempt   uint
	State     State
	Blockhash solana.Blockhash
	Signature solana.Signature
	Err       error
}

// Observer receives every state transition, in order, on the submitting
// goroutine.
type Observer func(Transition)
