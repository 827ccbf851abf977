// Package provider holds what all upstream data providers share: the error
// type reported to callers and the observability wrapper.
package provider

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound means the upstream does not know the ticker.
	ErrNotFound = errors.New("ticker not found")
	// ErrNoStatements means the ticker resolved but no usable period could be built.
	ErrNoStatements = errors.New("no usable financial statements")
	// ErrUpstream means the upstream answered with an error or malformed data.
	ErrUpstream = errors.New("upstream error")
)

// ProviderError is the one error type providers return to callers.
// Attempted is set when the error summarizes a fallback over several providers.
type ProviderError struct {
	Provider  string
	Ticker    string
	Op        string
	Attempted []string
	Err       error
}

func (e *ProviderError) Error() string {
	if len(e.Attempted) > 0 {
		msg := fmt.Sprintf("could not retrieve financial statements for '%s' from any source (tried: %s)",
			e.Ticker, strings.Join(e.Attempted, ", "))
		if e.Err != nil {
			msg += ": last error: " + e.Err.Error()
		}
		return msg
	}
	return fmt.Sprintf("%s: %s %s: %v", e.Provider, e.Op, e.Ticker, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Errorf builds a ProviderError wrapping a formatted cause.
func Errorf(provider, op, ticker string, format string, args ...any) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Ticker:   ticker,
		Op:       op,
		Err:      fmt.Errorf(format, args...),
	}
}

// Wrap converts err into a ProviderError unless it already is one.
func Wrap(provider, op, ticker string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Provider: provider, Ticker: ticker, Op: op, Err: err}
}
