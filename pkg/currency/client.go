package currency

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUpstreamUnavailable indicates the price feed could not be reached or
	// returned no data
	ErrUpstreamUnavailable = errors.New("price feed unavailable")

	// ErrInvalidPriceData indicates the price feed returned a non-positive
	// price
	ErrInvalidPriceData = errors.New("invalid price data")
)

// Price is a SOL/USD reference price.
type Price struct {
	// Value is the USD value of one SOL, already adjusted by the feed's
	// exponent
	Value float64

	Source    string
	Timestamp time.Time
}

type PriceClient interface {
	// GetSolUsdPrice gets the most recently published SOL/USD price. A single
	// round trip is made per call.
	GetSolUsdPrice(ctx context.Context) (*Price, error)
}
