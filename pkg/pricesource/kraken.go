package pricesource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pricepulse-network/pricepulse-daemon/internal/core/ports"
	"github.com/pricepulse-network/pricepulse-daemon/pkg/circuitbreaker"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/ratelimit"
)

// DefaultKrakenTickerURL is the public REST endpoint answering instantaneous
// price lookups.
const DefaultKrakenTickerURL = "https://api.kraken.com/0/public/Ticker?pair=XBTUSDT"

const requestsPerSecond = 2

type krakenSource struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter ratelimit.Limiter
}

// NewKrakenSource returns a PriceSource backed by the kraken public ticker
// REST endpoint, rate limited and guarded by a circuit breaker so a flapping
// upstream does not pile up lookups.
func NewKrakenSource(url string) ports.PriceSource {
	if url == "" {
		url = DefaultKrakenTickerURL
	}
	return &krakenSource{
		url:     url,
		client:  &http.Client{Timeout: 5 * time.Second},
		breaker: circuitbreaker.NewCircuitBreaker("pricesource"),
		limiter: ratelimit.New(requestsPerSecond),
	}
}

func (s *krakenSource) SpotPrice(ctx context.Context) (decimal.Decimal, error) {
	s.limiter.Take()

	price, err := s.breaker.Execute(func() (interface{}, error) {
		return s.fetch(ctx)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return price.(decimal.Decimal), nil
}

type tickerResponse struct {
	Error  []string `json:"error"`
	Result map[string]struct {
		Close []string `json:"c"`
	} `json:"result"`
}

func (s *krakenSource) fetch(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return decimal.Zero, err
	}

	res, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("unexpected status %d", res.StatusCode)
	}

	var ticker tickerResponse
	if err := json.NewDecoder(res.Body).Decode(&ticker); err != nil {
		return decimal.Zero, err
	}
	if len(ticker.Error) > 0 {
		return decimal.Zero, fmt.Errorf("ticker lookup failed: %s", ticker.Error[0])
	}

	for _, pair := range ticker.Result {
		if len(pair.Close) < 1 {
			continue
		}
		return decimal.NewFromString(pair.Close[0])
	}

	return decimal.Zero, fmt.Errorf("no price in ticker response")
}
