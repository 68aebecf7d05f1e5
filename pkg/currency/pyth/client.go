// Package pyth implements a currency.PriceClient against the Pyth Hermes
// price service.
package pyth

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/wiser-pay/wiser-server/pkg/currency"
	"github.com/wiser-pay/wiser-server/pkg/metrics"
)

const (
	metricsStructName = "currency.pyth.client"
)

const (
	DefaultHermesUrl = "https://hermes.pyth.network"

	// SolUsdFeedId is the Pyth SOL/USD price feed
	SolUsdFeedId = "0xef0d8b6fda2ceba41da15d4095d1da392a0d2f8ed0c6c7bc0f4cfac8c280b56d"

	latestPriceFeedsPath = "/api/latest_price_feeds"
)

// API Documentation: https://hermes.pyth.network/docs
type client struct {
	feedId     string
	httpClient *resty.Client
}

func NewClient(hermesUrl, feedId string) currency.PriceClient {
	return &client{
		feedId: feedId,
		httpClient: resty.New().
			SetBaseURL(strings.TrimRight(hermesUrl, "/")).
			SetTimeout(15 * time.Second).
			SetHeader("Accept", "application/json"),
	}
}

// GetSolUsdPrice implements currency.PriceClient.GetSolUsdPrice
func (c *client) GetSolUsdPrice(ctx context.Context) (*currency.Price, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetSolUsdPrice")
	defer tracer.End()

	var feeds []priceFeed
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("ids[]", c.feedId).
		SetResult(&feeds).
		Get(latestPriceFeedsPath)
	if err != nil {
		tracer.OnError(err)
		return nil, errors.Wrap(currency.ErrUpstreamUnavailable, err.Error())
	}
	if resp.IsError() {
		err = errors.Wrapf(currency.ErrUpstreamUnavailable, "received non-200 status code: %d", resp.StatusCode())
		tracer.OnError(err)
		return nil, err
	}
	if len(feeds) == 0 {
		err = errors.Wrap(currency.ErrUpstreamUnavailable, "no price feeds returned")
		tracer.OnError(err)
		return nil, err
	}

	price, err := feeds[0].Price.toPrice()
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}
	return price, nil
}

type priceFeed struct {
	Id    string    `json:"id"`
	Price priceData `json:"price"`
}

type priceData struct {
	Price       string `json:"price"`
	Conf        string `json:"conf"`
	Expo        int    `json:"expo"`
	PublishTime int64  `json:"publish_time"`
}

func (p priceData) toPrice() (*currency.Price, error) {
	raw, err := strconv.ParseInt(p.Price, 10, 64)
	if err != nil {
		return nil, errors.Wrapf(currency.ErrInvalidPriceData, "invalid price %q", p.Price)
	}

	return &currency.Price{
		Value:     float64(raw) * math.Pow10(p.Expo),
		Source:    "pyth",
		Timestamp: time.Unix(p.PublishTime, 0),
	}, nil
}
