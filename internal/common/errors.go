// Package common provides shared utilities for chartd
package common

import (
	"errors"
	"fmt"
)

// Error taxonomy for the query and sync engines. The HTTP layer maps
// these onto status codes; the sync engine never lets ErrUpstream
// escape past its result type.
var (
	// ErrInvalidInput marks a bad symbol or timeframe. Not retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoData marks a valid request for which nothing was found.
	ErrNoData = errors.New("no data")

	// ErrUpstream marks an external data source failure.
	ErrUpstream = errors.New("upstream error")

	// ErrStorage marks a store query or transaction failure.
	ErrStorage = errors.New("storage error")
)

// NoDataError reports which symbol had no data.
type NoDataError struct {
	Symbol string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no data found for symbol %s", e.Symbol)
}

func (e *NoDataError) Unwrap() error { return ErrNoData }
