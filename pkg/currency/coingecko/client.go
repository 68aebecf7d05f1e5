// Package coingecko implements a currency.PriceClient against the CoinGecko
// simple price API. It serves as a fallback source to Pyth.
package coingecko

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/wiser-pay/wiser-server/pkg/currency"
	"github.com/wiser-pay/wiser-server/pkg/metrics"
)

const (
	metricsStructName = "currency.coingecko.client"
)

const (
	DefaultBaseUrl = "https://api.coingecko.com/api"

	simplePricePath = "/v3/simple/price?ids=solana&vs_currencies=usd&include_last_updated_at=true"
)

type client struct {
	baseUrl    string
	httpClient *http.Client
}

func NewClient(baseUrl string) currency.PriceClient {
	return &client{
		baseUrl: strings.TrimRight(baseUrl, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// GetSolUsdPrice implements currency.PriceClient.GetSolUsdPrice
func (c *client) GetSolUsdPrice(ctx context.Context) (*currency.Price, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetSolUsdPrice")
	defer tracer.End()

	var resp response
	err := c.submitRequest(ctx, c.baseUrl+simplePricePath, &resp)
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}

	price, ok := resp["solana"]
	if !ok {
		err = errors.Wrap(currency.ErrUpstreamUnavailable, "no solana price returned")
		tracer.OnError(err)
		return nil, err
	}

	return &currency.Price{
		Value:     price.Usd,
		Source:    "coingecko",
		Timestamp: time.Unix(price.LastUpdatedAt, 0),
	}, nil
}

func (c *client) submitRequest(ctx context.Context, url string, resp interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(currency.ErrUpstreamUnavailable, err.Error())
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return errors.Wrapf(currency.ErrUpstreamUnavailable, "received non-200 status code: %d", httpResp.StatusCode)
	}

	err = json.NewDecoder(httpResp.Body).Decode(resp)
	if err != nil {
		return errors.Wrap(currency.ErrUpstreamUnavailable, "failed to decode response")
	}

	return nil
}

type response map[string]struct {
	Usd           float64 `json:"usd"`
	LastUpdatedAt int64   `json:"last_updated_at"`
}
