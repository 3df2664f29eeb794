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

// RESTProvider reads bars from a vstrader-compatible REST API.
type RESTProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRESTProvider creates a provider with optional proxy support.
func NewRESTProvider(baseURL, apiKey, proxyURL string, timeout time.Duration) *RESTProvider {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &RESTProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

func (p *RESTProvider) Name() string { return "rest" }

// restBar is the expected JSON shape from the bars API.
type restBar struct {
	Timestamp int64   `json:"timestamp"`
	Close     float64 `json:"close"`
}

// FetchWeeklyCloses tries the weekly endpoint first and falls back to
// aggregating daily bars when the API only serves those.
func (p *RESTProvider) FetchWeeklyCloses(ctx context.Context, symbol string, weeks int) (model.PriceSeries, error) {
	endpoint := fmt.Sprintf("%s/api/v1/bars/weekly?symbol=%s&limit=%d", p.BaseURL, url.QueryEscape(symbol), weeks)
	points, err := p.fetchBars(ctx, endpoint)
	if err != nil {
		dailyEndpoint := fmt.Sprintf("%s/api/v1/bars/daily?symbol=%s&limit=%d", p.BaseURL, url.QueryEscape(symbol), weeks*7)
		daily, dailyErr := p.fetchBars(ctx, dailyEndpoint)
		if dailyErr != nil {
			return model.PriceSeries{}, &ProviderError{
				Provider: p.Name(),
				Symbol:   symbol,
				Err:      fmt.Errorf("weekly fetch failed: %w; daily fallback also failed: %w", err, dailyErr),
			}
		}
		points = aggregateDailyToWeekly(daily)
	}
	if len(points) == 0 {
		return model.PriceSeries{}, &ProviderError{Provider: p.Name(), Symbol: symbol, Err: ErrEmptySeries}
	}
	return model.PriceSeries{Symbol: symbol, Points: trimWeeks(points, weeks)}, nil
}

func (p *RESTProvider) fetchBars(ctx context.Context, endpoint string) ([]model.PricePoint, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrUnknownSymbol
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	var bars []restBar
	if err := json.NewDecoder(resp.Body).Decode(&bars); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	points := make([]model.PricePoint, len(bars))
	for i, b := range bars {
		points[i] = model.PricePoint{Time: time.Unix(b.Timestamp, 0).UTC(), Close: b.Close}
	}
	// Ensure chronological order
	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return points, nil
}
