package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"MomentumTracker/internal/model"
)

const yahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// YahooChartProvider reads weekly bars from the Yahoo Finance chart API.
type YahooChartProvider struct {
	Client    *http.Client
	BaseURL   string
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooChartProvider creates a provider with optional proxy support.
func NewYahooChartProvider(proxyURL string, timeout time.Duration) *YahooChartProvider {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooChartProvider{
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		BaseURL: yahooChartURL,
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func (p *YahooChartProvider) Name() string { return "yahoo" }

func (p *YahooChartProvider) yahooSymbol(symbol string) string {
	if mapped, ok := p.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

type yahooQuote struct {
	Close []*float64 `json:"close"`
}

type yahooAdjClose struct {
	AdjClose []*float64 `json:"adjclose"`
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote    []yahooQuote    `json:"quote"`
				AdjClose []yahooAdjClose `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchWeeklyCloses implements Provider.
func (p *YahooChartProvider) FetchWeeklyCloses(ctx context.Context, symbol string, weeks int) (model.PriceSeries, error) {
	points, err := p.fetchChart(ctx, symbol, "1wk", yahooRange(weeks))
	if err != nil {
		return model.PriceSeries{}, &ProviderError{Provider: p.Name(), Symbol: symbol, Err: err}
	}
	return model.PriceSeries{Symbol: symbol, Points: trimWeeks(points, weeks)}, nil
}

func (p *YahooChartProvider) fetchChart(ctx context.Context, symbol, interval, rng string) ([]model.PricePoint, error) {
	u := fmt.Sprintf("%s/%s?interval=%s&range=%s",
		p.BaseURL, url.PathEscape(p.yahooSymbol(symbol)), interval, rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrUnknownSymbol
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s: %w", chart.Chart.Error.Description, ErrUnknownSymbol)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, ErrEmptySeries
	}

	result := chart.Chart.Result[0]
	closes := adjustedCloses(result.Indicators.AdjClose, result.Indicators.Quote)
	points := make([]model.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil || *closes[i] <= 0 {
			continue // null bars (holidays etc.)
		}
		points = append(points, model.PricePoint{
			Time:  time.Unix(ts, 0).UTC(),
			Close: *closes[i],
		})
	}
	if len(points) == 0 {
		return nil, ErrEmptySeries
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return points, nil
}

// adjustedCloses prefers split/dividend adjusted closes when present.
func adjustedCloses(adj []yahooAdjClose, quote []yahooQuote) []*float64 {
	if len(adj) > 0 && len(adj[0].AdjClose) > 0 {
		return adj[0].AdjClose
	}
	if len(quote) > 0 {
		return quote[0].Close
	}
	return nil
}
