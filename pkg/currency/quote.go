package currency

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wiser-pay/wiser-server/pkg/metrics"
)

const (
	metricsStructName = "currency.quoter"
)

// ErrInvalidInput indicates a USD amount that is non-numeric or not positive
var ErrInvalidInput = errors.New("usd amount must be a positive number")

// Quote is the SOL equivalent of a USD amount at a reference price.
type Quote struct {
	UsdAmount     float64 `json:"usdAmount"`
	SolUsdPrice   float64 `json:"solUsdPrice"`
	SolEquivalent float64 `json:"solEquivalent"`
}

// Quoter converts USD amounts to SOL using a live price feed.
type Quoter struct {
	log    *logrus.Entry
	client PriceClient
}

func NewQuoter(client PriceClient) *Quoter {
	return &Quoter{
		log:    logrus.StandardLogger().WithField("type", "currency/quoter"),
		client: client,
	}
}

// Quote returns the SOL equivalent of usdAmount. Validation happens before
// the price feed is contacted.
func (q *Quoter) Quote(ctx context.Context, usdAmount float64) (*Quote, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Quote")
	defer tracer.End()

	if !isPositive(usdAmount) {
		return nil, ErrInvalidInput
	}

	log := q.log.WithField("usd_amount", usdAmount)

	price, err := q.client.GetSolUsdPrice(ctx)
	if err != nil {
		log.WithError(err).Warn("failure getting sol/usd price")
		tracer.OnError(err)
		return nil, err
	}

	if !isPositive(price.Value) {
		log.WithField("price", price.Value).Warn("price feed returned an invalid price")
		tracer.OnError(ErrInvalidPriceData)
		return nil, ErrInvalidPriceData
	}

	return &Quote{
		UsdAmount:     usdAmount,
		SolUsdPrice:   price.Value,
		SolEquivalent: SolEquivalent(usdAmount, price.Value),
	}, nil
}

// QuoteString parses a raw USD amount and quotes it.
func (q *Quoter) QuoteString(ctx context.Context, raw string) (*Quote, error) {
	usdAmount, err := ParseUsdAmount(raw)
	if err != nil {
		return nil, err
	}
	return q.Quote(ctx, usdAmount)
}

// ParseUsdAmount parses a positive, finite USD amount.
func ParseUsdAmount(raw string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || !isPositive(value) {
		return 0, ErrInvalidInput
	}
	return value, nil
}

// SolEquivalent is the amount of SOL worth usdAmount at solUsdPrice.
func SolEquivalent(usdAmount, solUsdPrice float64) float64 {
	return usdAmount / solUsdPrice
}

func isPositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
