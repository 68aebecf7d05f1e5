package pyth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wiser-pay/wiser-server/pkg/currency"
)

func TestGetSolUsdPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, latestPriceFeedsPath, r.URL.Path)
		assert.Equal(t, SolUsdFeedId, r.URL.Query().Get("ids[]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{
			"id": "ef0d8b6fda2ceba41da15d4095d1da392a0d2f8ed0c6c7bc0f4cfac8c280b56d",
			"price": {"price": "14250000000", "conf": "7000000", "expo": -8, "publish_time": 1718000000}
		}]`))
	}))
	defer server.Close()

	price, err := NewClient(server.URL, SolUsdFeedId).GetSolUsdPrice(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 142.5, price.Value, 1e-9)
	assert.Equal(t, "pyth", price.Source)
	assert.EqualValues(t, 1718000000, price.Timestamp.Unix())
}

func TestGetSolUsdPrice_ZeroPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id": "x", "price": {"price": "0", "conf": "0", "expo": -8, "publish_time": 0}}]`))
	}))
	defer server.Close()

	price, err := NewClient(server.URL, SolUsdFeedId).GetSolUsdPrice(context.Background())
	require.NoError(t, err)
	assert.Zero(t, price.Value)

	_, err = currency.NewQuoter(NewClient(server.URL, SolUsdFeedId)).Quote(context.Background(), 10)
	assert.Equal(t, currency.ErrInvalidPriceData, err)
}

func TestGetSolUsdPrice_Unavailable(t *testing.T) {
	for _, handler := range []http.HandlerFunc{
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		},
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[]`))
		},
	} {
		server := httptest.NewServer(handler)

		_, err := NewClient(server.URL, SolUsdFeedId).GetSolUsdPrice(context.Background())
		assert.Equal(t, currency.ErrUpstreamUnavailable, errors.Cause(err))

		server.Close()
	}

	_, err := NewClient("http://127.0.0.1:1", SolUsdFeedId).GetSolUsdPrice(context.Background())
	assert.Equal(t, currency.ErrUpstreamUnavailable, errors.Cause(err))
}

func TestGetSolUsdPrice_MalformedPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id": "x", "price": {"price": "abc", "conf": "0", "expo": -8, "publish_time": 0}}]`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, SolUsdFeedId).GetSolUsdPrice(context.Background())
	assert.Equal(t, currency.ErrInvalidPriceData, errors.Cause(err))
}
