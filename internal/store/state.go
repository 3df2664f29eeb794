package store

import (
	"encoding/json"
	"os"

	"MomentumTracker/internal/model"
)

// LoadState reads the portfolio state from a JSON file. ok is false when the
// file does not exist. A file that cannot be decoded is a StateError.
func LoadState(filePath string) (state model.PortfolioState, ok bool, err error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return model.PortfolioState{}, false, nil
		}
		return model.PortfolioState{}, false, &model.StateError{Reason: "read", Err: err}
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return model.PortfolioState{}, false, &model.StateError{Reason: "corrupt state file", Err: err}
	}
	if state.Holdings == nil {
		state.Holdings = map[string]model.Holding{}
	}
	return state, true, nil
}

func encodeState(state model.PortfolioState) ([]byte, error) {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
