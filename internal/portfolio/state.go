package portfolio

import (
	"errors"
	"fmt"
	"math"
	"time"

	"MomentumTracker/internal/model"

	"gonum.org/v1/gonum/floats"
)

// NewState returns a fresh all-cash portfolio.
func NewState(startingNAV float64, date time.Time) model.PortfolioState {
	return model.PortfolioState{
		AsOf:          date,
		InceptionDate: date,
		Cash:          startingNAV,
		NAV:           startingNAV,
		InCash:        true,
		Holdings:      map[string]model.Holding{},
	}
}

// ValidateState rejects a state that cannot be rebalanced from. tol is relative
// to the NAV.
func ValidateState(s model.PortfolioState, tol float64) error {
	abs := tol * math.Max(1, math.Abs(s.NAV))

	if s.Version < 0 {
		return &model.StateError{Reason: fmt.Sprintf("negative version %d", s.Version)}
	}
	if !finite(s.Cash) || s.Cash < -abs {
		return &model.StateError{Reason: fmt.Sprintf("invalid cash %v", s.Cash)}
	}
	if !finite(s.NAV) || s.NAV < 0 {
		return &model.StateError{Reason: fmt.Sprintf("invalid nav %v", s.NAV)}
	}
	if s.InCash && len(s.Holdings) > 0 {
		return &model.StateError{Reason: "in_cash set with open holdings"}
	}

	values := make([]float64, 0, len(s.Holdings))
	for sym, h := range s.Holdings {
		if h.Symbol != sym {
			return &model.StateError{Reason: fmt.Sprintf("holding %q stored under %q", h.Symbol, sym)}
		}
		if !finite(h.Shares) || h.Shares <= 0 {
			return &model.StateError{Reason: fmt.Sprintf("holding %s has %v shares", sym, h.Shares)}
		}
		if !finite(h.LastPrice) || h.LastPrice <= 0 {
			return &model.StateError{Reason: fmt.Sprintf("holding %s has price %v", sym, h.LastPrice)}
		}
		values = append(values, h.Shares*h.LastPrice)
	}

	if want := s.Cash + floats.Sum(values); math.Abs(want-s.NAV) > abs {
		return &model.StateError{
			Reason: "nav mismatch",
			Err:    fmt.Errorf("nav %.4f, cash plus holdings %.4f", s.NAV, want),
		}
	}
	return nil
}

// ErrStateAhead is returned when the stored state is newer than the run date.
var ErrStateAhead = errors.New("state is dated after the run date")

// CheckRunDate makes sure a run for date may proceed from s.
func CheckRunDate(s model.PortfolioState, date time.Time) error {
	if s.Version > 0 && s.AsOf.After(date) {
		return &model.StateError{
			Reason: "as_of_date",
			Err:    fmt.Errorf("%w: %s > %s", ErrStateAhead, s.AsOf.Format("2006-01-02"), date.Format("2006-01-02")),
		}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
