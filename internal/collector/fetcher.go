package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"MomentumTracker/internal/model"
)

var (
	// ErrEmptySeries is returned when a provider has no closes for a symbol.
	ErrEmptySeries = errors.New("empty price series")
	// ErrUnknownSymbol is returned when the provider does not know a symbol.
	ErrUnknownSymbol = errors.New("unknown symbol")
)

// Provider returns chronological weekly closes for a symbol.
type Provider interface {
	FetchWeeklyCloses(ctx context.Context, symbol string, weeks int) (model.PriceSeries, error)
	Name() string
}

// ProviderError wraps any failure of a price-history provider.
type ProviderError struct {
	Provider string
	Symbol   string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: fetch %s: %v", e.Provider, e.Symbol, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// StatusError is a non-200 HTTP answer from an upstream API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d, body: %s", e.Code, e.Body)
}

var retryableMessages = []string{
	"timed out",
	"timeout",
	"too many requests",
	"rate limited",
	"temporarily unavailable",
	"connection reset",
}

// IsRetryable reports whether a fetch failure is worth another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnknownSymbol) || errors.Is(err, ErrEmptySeries) || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	msg := strings.ToLower(err.Error())
	for _, m := range retryableMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
