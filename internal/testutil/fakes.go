package testutil

import (
	"context"
	"strings"
	"sync"

	"papertrade/internal/provider"

	"github.com/shopspring/decimal"
)

// FakeSource is an in-memory provider.Source. Prices and errors are keyed by symbol.
type FakeSource struct {
	mu         sync.Mutex
	prices     map[string]decimal.Decimal
	errs       map[string]error
	bars       map[string][]provider.Bar
	QuoteCalls int
}

var _ provider.Source = (*FakeSource)(nil)

// NewFakeSource creates a FakeSource with the given symbol to price map.
func NewFakeSource(prices map[string]string) *FakeSource {
	s := &FakeSource{
		prices: make(map[string]decimal.Decimal),
		errs:   make(map[string]error),
		bars:   make(map[string][]provider.Bar),
	}
	for sym, p := range prices {
		s.prices[sym] = D(p)
	}
	return s
}

// SetPrice changes the price returned for symbol.
func (s *FakeSource) SetPrice(symbol, price string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[symbol] = D(price)
	delete(s.errs, symbol)
}

// SetError makes every fetch of symbol fail with err.
func (s *FakeSource) SetError(symbol string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[symbol] = err
}

// SetHistory sets the bars returned for symbol.
func (s *FakeSource) SetHistory(symbol string, bars []provider.Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bars[symbol] = bars
}

// Name returns "fake".
func (s *FakeSource) Name() string { return "fake" }

// Quote returns the configured price for symbol.
func (s *FakeSource) Quote(_ context.Context, symbol string) (provider.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.QuoteCalls++
	return s.quoteLocked(symbol)
}

func (s *FakeSource) quoteLocked(symbol string) (provider.Quote, error) {
	if err, ok := s.errs[symbol]; ok {
		return provider.Quote{}, err
	}
	p, ok := s.prices[symbol]
	if !ok {
		return provider.Quote{}, provider.ErrSymbolNotFound
	}
	return provider.Quote{
		Symbol:        symbol,
		Name:          strings.ToUpper(symbol) + " Corp",
		Currency:      "USD",
		Price:         p,
		Change:        decimal.Zero,
		ChangePercent: decimal.Zero,
		Volume:        100,
		MarketCap:     decimal.Zero,
		Sector:        "Unknown",
	}, nil
}

// Quotes returns configured prices for every known symbol and errors for the rest.
func (s *FakeSource) Quotes(_ context.Context, symbols []string) provider.BatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := provider.BatchResult{Quotes: make(map[string]provider.Quote)}
	for _, sym := range symbols {
		q, err := s.quoteLocked(sym)
		if err != nil {
			res.Errors = append(res.Errors, provider.FetchError{Symbol: sym, Err: err})
			continue
		}
		res.Quotes[sym] = q
	}
	return res
}

// History returns the configured bars for symbol.
func (s *FakeSource) History(_ context.Context, symbol, _ string) ([]provider.Bar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.errs[symbol]; ok {
		return nil, err
	}
	return s.bars[symbol], nil
}

// FakeGenerator is an explain.Generator returning a fixed reply or error.
type FakeGenerator struct {
	mu      sync.Mutex
	Reply   string
	Err     error
	Prompts []string
}

// Generate records prompt and returns Reply or Err.
func (g *FakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Prompts = append(g.Prompts, prompt)
	if g.Err != nil {
		return "", g.Err
	}
	return g.Reply, nil
}

// Calls returns how many times Generate was called.
func (g *FakeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Prompts)
}
