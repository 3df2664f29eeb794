package model

import "fmt"

// DataError scopes a failure to a single ticker. It is recorded on the
// ticker's ScanRecord and never aborts a run.
type DataError struct {
	Symbol string
	Err    error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("%s: %v", e.Symbol, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

// StateError means the previous portfolio state cannot be trusted. Run-fatal.
type StateError struct {
	Reason string
	Err    error
}

func (e *StateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("portfolio state: %s: %v", e.Reason, e.Err)
	}
	return "portfolio state: " + e.Reason
}

func (e *StateError) Unwrap() error { return e.Err }

// ConfigError reports an invalid configuration or ticker universe. Run-fatal.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
