package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"papertrade/internal/logger"
)

const (
	yahooBaseURL       = "https://query1.finance.yahoo.com/v8/finance/chart"
	yahooSummaryURL    = "https://query2.finance.yahoo.com/v10/finance/quoteSummary"
	yahooMaxConcurrent = 5
	yahooUA            = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)"
	defaultSector      = "Unknown"
)

// yahooChartResponse is the top-level v8 chart API response.
type yahooChartResponse struct {
	Chart struct {
		Result []yahooChartResult `json:"result"`
		Error  *yahooChartError   `json:"error"`
	} `json:"chart"`
}

type yahooChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type yahooChartResult struct {
	Meta       yahooChartMeta `json:"meta"`
	Timestamp  []int64        `json:"timestamp"`
	Indicators struct {
		Quote []yahooChartQuote `json:"quote"`
	} `json:"indicators"`
}

type yahooChartMeta struct {
	Symbol              string  `json:"symbol"`
	Currency            string  `json:"currency"`
	LongName            string  `json:"longName"`
	ShortName           string  `json:"shortName"`
	RegularMarketPrice  float64 `json:"regularMarketPrice"`
	ChartPreviousClose  float64 `json:"chartPreviousClose"`
	RegularMarketVolume int64   `json:"regularMarketVolume"`
}

// yahooSummaryResponse is the subset of the v10 quoteSummary response read
// for the price and assetProfile modules.
type yahooSummaryResponse struct {
	QuoteSummary struct {
		Result []yahooSummaryResult `json:"result"`
		Error  *yahooChartError     `json:"error"`
	} `json:"quoteSummary"`
}

type yahooSummaryResult struct {
	Price struct {
		MarketCap struct {
			Raw float64 `json:"raw"`
		} `json:"marketCap"`
	} `json:"price"`
	AssetProfile struct {
		Sector string `json:"sector"`
	} `json:"assetProfile"`
}

// yahooChartQuote holds parallel OHLCV series. Gaps are null.
type yahooChartQuote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

// YahooProvider fetches quotes and history from the Yahoo Finance v8 chart
// API. Market cap and sector come from the v10 quoteSummary API when a
// summary endpoint is configured.
type YahooProvider struct {
	httpClient *http.Client
	baseURL    string // overridable for tests
	summaryURL string // empty disables profile lookups
	now        func() time.Time
}

// NewYahooProvider creates a new Yahoo Finance source. An empty baseURL
// selects the public chart and quoteSummary endpoints. A custom baseURL
// leaves profile lookups off until WithSummaryURL sets one.
func NewYahooProvider(httpClient *http.Client, baseURL string) *YahooProvider {
	summaryURL := ""
	if baseURL == "" {
		baseURL = yahooBaseURL
		summaryURL = yahooSummaryURL
	}
	return &YahooProvider{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		summaryURL: summaryURL,
		now:        time.Now,
	}
}

// WithSummaryURL points profile lookups at u and returns p.
func (p *YahooProvider) WithSummaryURL(u string) *YahooProvider {
	p.summaryURL = strings.TrimRight(u, "/")
	return p
}

// Name returns the provider's display name.
func (p *YahooProvider) Name() string { return "Yahoo Finance" }

// Quote fetches the latest quote for symbol.
func (p *YahooProvider) Quote(ctx context.Context, symbol string) (Quote, error) {
	result, err := p.chart(ctx, symbol, "1d")
	if err != nil {
		return Quote{}, err
	}

	meta := result.Meta
	if meta.RegularMarketPrice <= 0 {
		return Quote{}, fmt.Errorf("zero price for %s: %w", symbol, ErrSymbolNotFound)
	}

	price := decimal.NewFromFloat(meta.RegularMarketPrice).Round(4)
	prev := decimal.NewFromFloat(meta.ChartPreviousClose).Round(4)
	change := decimal.Zero
	changePct := decimal.Zero
	if prev.IsPositive() {
		change = price.Sub(prev)
		changePct = change.Mul(decimal.NewFromInt(100)).DivRound(prev, 4)
	}

	name := meta.LongName
	if name == "" {
		name = meta.ShortName
	}
	if name == "" {
		name = symbol
	}

	marketCap, sector := p.profile(ctx, symbol)

	return Quote{
		Symbol:        symbol,
		Name:          name,
		Currency:      strings.ToUpper(meta.Currency),
		Price:         price,
		PreviousClose: prev,
		Change:        change,
		ChangePercent: changePct,
		Volume:        meta.RegularMarketVolume,
		MarketCap:     marketCap,
		Sector:        sector,
		FetchedAt:     p.now().UTC(),
	}, nil
}

// Quotes fetches quotes concurrently, at most yahooMaxConcurrent at a time.
func (p *YahooProvider) Quotes(ctx context.Context, symbols []string) BatchResult {
	result := BatchResult{Quotes: make(map[string]Quote, len(symbols))}
	if len(symbols) == 0 {
		return result
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(yahooMaxConcurrent)

	for _, sym := range symbols {
		g.Go(func() error {
			q, err := p.Quote(gctx, sym)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, FetchError{Symbol: sym, Err: err})
				return nil
			}
			result.Quotes[sym] = q
			return nil
		})
	}
	_ = g.Wait()

	return result
}

// History fetches daily bars for symbol over period.
func (p *YahooProvider) History(ctx context.Context, symbol, period string) ([]Bar, error) {
	if !ValidPeriod(period) {
		return nil, fmt.Errorf("unsupported period %q", period)
	}

	result, err := p.chart(ctx, symbol, period)
	if err != nil {
		return nil, err
	}

	bars := make([]Bar, 0, len(result.Timestamp))
	if len(result.Indicators.Quote) == 0 {
		return bars, nil
	}
	q := result.Indicators.Quote[0]
	for i, ts := range result.Timestamp {
		closePx := at(q.Close, i)
		if closePx == nil {
			continue
		}
		bar := Bar{
			Date:  time.Unix(ts, 0).UTC(),
			Open:  floatOr(at(q.Open, i), *closePx),
			High:  floatOr(at(q.High, i), *closePx),
			Low:   floatOr(at(q.Low, i), *closePx),
			Close: decimal.NewFromFloat(*closePx).Round(4),
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			bar.Volume = *q.Volume[i]
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// profile looks up market cap and sector for symbol. A failed lookup yields
// zero and defaultSector; it never fails the quote.
func (p *YahooProvider) profile(ctx context.Context, symbol string) (decimal.Decimal, string) {
	if p.summaryURL == "" {
		return decimal.Zero, defaultSector
	}

	summary, err := p.quoteSummary(ctx, symbol)
	if err != nil {
		logger.Get().Debugw("quote profile unavailable", "symbol", symbol, "error", err)
		return decimal.Zero, defaultSector
	}

	marketCap := decimal.Zero
	if raw := summary.Price.MarketCap.Raw; raw > 0 {
		marketCap = decimal.NewFromFloat(raw).Round(2)
	}
	sector := strings.TrimSpace(summary.AssetProfile.Sector)
	if sector == "" {
		sector = defaultSector
	}
	return marketCap, sector
}

// quoteSummary performs one v10 quoteSummary request for the price and
// assetProfile modules.
func (p *YahooProvider) quoteSummary(ctx context.Context, symbol string) (*yahooSummaryResult, error) {
	u := fmt.Sprintf("%s/%s?modules=price,assetProfile", p.summaryURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", yahooUA)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %v: %w", err, ErrUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %w", resp.StatusCode, ErrUnavailable)
	}
	var summaryResp yahooSummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&summaryResp); err != nil {
		return nil, fmt.Errorf("decoding response: %v: %w", err, ErrUnavailable)
	}
	if ce := summaryResp.QuoteSummary.Error; ce != nil {
		return nil, fmt.Errorf("%s: %s: %w", ce.Code, ce.Description, ErrUnavailable)
	}
	if len(summaryResp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("empty summary for %s: %w", symbol, ErrUnavailable)
	}
	return &summaryResp.QuoteSummary.Result[0], nil
}

// chart performs one v8 chart request with daily interval.
func (p *YahooProvider) chart(ctx context.Context, symbol, period string) (*yahooChartResult, error) {
	u := fmt.Sprintf("%s/%s?range=%s&interval=1d", p.baseURL, url.PathEscape(symbol), url.QueryEscape(period))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", yahooUA)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %v: %w", err, ErrUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	var chartResp yahooChartResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&chartResp)

	if chartResp.Chart.Error != nil {
		ce := chartResp.Chart.Error
		if resp.StatusCode == http.StatusNotFound || ce.Code == "Not Found" {
			return nil, fmt.Errorf("%s: %s: %w", ce.Code, ce.Description, ErrSymbolNotFound)
		}
		return nil, fmt.Errorf("%s: %s: %w", ce.Code, ce.Description, ErrUnavailable)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("unexpected status %d: %w", resp.StatusCode, ErrSymbolNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %w", resp.StatusCode, ErrUnavailable)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decoding response: %v: %w", decodeErr, ErrUnavailable)
	}
	if len(chartResp.Chart.Result) == 0 {
		return nil, fmt.Errorf("empty chart for %s: %w", symbol, ErrSymbolNotFound)
	}
	return &chartResp.Chart.Result[0], nil
}

func at(series []*float64, i int) *float64 {
	if i < len(series) {
		return series[i]
	}
	return nil
}

func floatOr(v *float64, fallback float64) decimal.Decimal {
	if v == nil {
		return decimal.NewFromFloat(fallback).Round(4)
	}
	return decimal.NewFromFloat(*v).Round(4)
}
