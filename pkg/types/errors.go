package types

import (
	"errors"
	"fmt"
	"math/big"
	"time"
)

// ConfigError is fatal at startup: a missing or contradictory setting.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

// TransientNetworkError wraps timeouts, connection resets, 429s, and 5xx
// responses. The client layer retries these with backoff; nothing above
// the client layer should ever see one mid-flight.
type TransientNetworkError struct {
	Op     string
	Status int // 0 for transport-level failures
	Err    error
}

func (e *TransientNetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: transient HTTP %d: %v", e.Op, e.Status, e.Err)
	}

	return fmt.Sprintf("%s: transient network error: %v", e.Op, e.Err)
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

// AuthError marks authentication or credential-derivation failure. The
// owning venue is treated as degraded for the current tick.
type AuthError struct {
	Protocol Protocol
	Op       string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s auth: %s: %v", e.Protocol, e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ValidationError is a venue rejection that retrying cannot fix: bad
// parameters, tick-size violations, or the collateral limit marker.
type ValidationError struct {
	Protocol Protocol
	Code     string
	Message  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s rejected order: %s (%s)", e.Protocol, e.Message, e.Code)
}

// Venue rejection codes that map to ValidationError.
const (
	ErrCollateralLimit    = "COLLATERAL_LIMIT_EXCEEDED"
	ErrInvalidMinTickSize = "INVALID_ORDER_MIN_TICK_SIZE"
	ErrNotEnoughBalance   = "INVALID_ORDER_NOT_ENOUGH_BALANCE"
	ErrFOKNotFilled       = "FOK_ORDER_NOT_FILLED_ERROR"
)

// StaleQuoteError means an opportunity aged out between scan and
// execution. Skipped silently; the next tick re-evaluates.
type StaleQuoteError struct {
	MarketID string
	Age      time.Duration
}

func (e *StaleQuoteError) Error() string {
	return fmt.Sprintf("quote for %s is stale (%s old)", e.MarketID, e.Age)
}

// PartialFillError means leg one filled and leg two did not: the book now
// holds a one-sided position that must be surfaced, never dropped.
type PartialFillError struct {
	Protocol  Protocol
	OrderID   string
	Requested *big.Int // 6-dp shares
	Filled    *big.Int // 6-dp shares
}

func (e *PartialFillError) Error() string {
	return fmt.Sprintf("%s order %s filled %s of %s shares",
		e.Protocol, e.OrderID, FormatUsdt(e.Filled), FormatUsdt(e.Requested))
}

// NonceConflictError reports a rejected client-tracked nonce. The client
// refreshes from the venue once; a second conflict degrades the venue.
type NonceConflictError struct {
	Protocol Protocol
	Nonce    uint64
}

func (e *NonceConflictError) Error() string {
	return fmt.Sprintf("%s rejected nonce %d", e.Protocol, e.Nonce)
}

// IsRetryable reports whether err is worth retrying with backoff.
// Validation, auth, and config failures fail fast.
func IsRetryable(err error) bool {
	var transient *TransientNetworkError

	return errors.As(err, &transient)
}
