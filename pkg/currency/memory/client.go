package memory

import (
	"context"
	"sync"
	"time"

	"github.com/wiser-pay/wiser-server/pkg/currency"
)

// Client is an in memory currency.PriceClient used for testing
type Client struct {
	mu    sync.Mutex
	price float64
	err   error
	calls int
}

func NewClient(price float64) *Client {
	return &Client{price: price}
}

// GetSolUsdPrice implements currency.PriceClient.GetSolUsdPrice
func (c *Client) GetSolUsdPrice(_ context.Context) (*currency.Price, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls++
	if c.err != nil {
		return nil, c.err
	}

	return &currency.Price{
		Value:     c.price,
		Source:    "memory",
		Timestamp: time.Now(),
	}, nil
}

func (c *Client) SetPrice(price float64) {
	c.mu.Lock()
	c.price = price
	c.mu.Unlock()
}

// SetError makes subsequent calls fail with err. A nil err clears it.
func (c *Client) SetError(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
