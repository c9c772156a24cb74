package sideshift

import (
	"errors"
	"fmt"
)

var (
	ErrCoins         = errors.New("fetch coins")
	ErrPermissions   = errors.New("check permissions")
	ErrQuote         = errors.New("request quote")
	ErrShiftCreation = errors.New("create shift")
	ErrShiftStatus   = errors.New("fetch shift")
	// ErrInternalParse marks a 2xx response whose body could not be decoded
	// into the expected shape.
	ErrInternalParse = errors.New("unparseable response")
)

// APIError is a non-2xx response from the exchange.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error %d", e.Status)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}
