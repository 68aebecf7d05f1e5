package transaction

import (
	"time"

	"github.com/wiser-pay/wiser-server/pkg/retry/backoff"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = 2 * time.Second
)

// Policy controls how many attempts are made and which failures are retried.
type Policy struct {
	MaxAttempts uint
	Backoff     backoff.Strategy
	Retriable   func(error) bool
}

// DefaultPolicy makes up to three attempts with a fixed two second pause,
// retrying only blockhash and timeout class failures.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     backoff.Constant(DefaultBackoff),
		Retriable:   IsRetriable,
	}
}

// SingleAttemptPolicy never retries.
func SingleAttemptPolicy() Policy {
	return Policy{
		MaxAttempts: 1,
		Backoff:     backoff.Constant(0),
		Retriable:   func(error) bool { return false },
	}
}

func (p Policy) withDefaults() Policy {
	defaults := DefaultPolicy()
	if p.MaxAttempts == 0 {
		p.MaxAttempts = defaults.MaxAttempts
	}
	if p.Backoff == nil {
		p.Backoff = defaults.Backoff
	}
	if p.Retriable == nil {
		p.Retriable = defaults.Retriable
	}
	return p
}
