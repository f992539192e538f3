package helpers

import (
	"errors"
	"fmt"
	"time"

	"meme-market/src/logger"
)

// -----------------------------------------------------------------------------
// Error kinds
// -----------------------------------------------------------------------------

// ErrorKind classifies a failure. The string form is the "reason" reported to API clients.
type ErrorKind string

const (
	KindNotAuthenticated     ErrorKind = "not_authenticated"
	KindNotFound             ErrorKind = "not_found"
	KindInsufficientFunds    ErrorKind = "insufficient_funds"
	KindInsufficientHoldings ErrorKind = "insufficient_holdings"
	KindInternalConsistency  ErrorKind = "internal_consistency"
	KindInvalidStock         ErrorKind = "invalid_stock"
	KindMarketClosed         ErrorKind = "market_closed"
	KindConflict             ErrorKind = "conflict"
)

// -----------------------------------------------------------------------------
// Custom Error Type
// -----------------------------------------------------------------------------

type MemeMarketError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *MemeMarketError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *MemeMarketError) Unwrap() error {
	return e.Cause
}

// Is matches the same sentinel only. Two errors of one kind (a missing user
// and a missing stock) stay distinct; use KindOf to classify by kind.
func (e *MemeMarketError) Is(target error) bool {
	t, ok := target.(*MemeMarketError)
	if !ok {
		return false
	}
	return t == e || (t.Kind == e.Kind && t.Message == e.Message)
}

// NewError creates an error of the given kind.
func NewError(kind ErrorKind, format string, args ...interface{}) *MemeMarketError {
	return &MemeMarketError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates an error of the given kind with a cause. Passing a
// sentinel as cause keeps errors.Is(err, sentinel) true.
func WrapError(kind ErrorKind, cause error, format string, args ...interface{}) *MemeMarketError {
	return &MemeMarketError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

var (
	ErrNotAuthenticated     = &MemeMarketError{Kind: KindNotAuthenticated, Message: "not authenticated"}
	ErrUserNotFound         = &MemeMarketError{Kind: KindNotFound, Message: "no such user"}
	ErrStockNotFound        = &MemeMarketError{Kind: KindNotFound, Message: "no such stock"}
	ErrInsufficientFunds    = &MemeMarketError{Kind: KindInsufficientFunds, Message: "insufficient funds"}
	ErrInsufficientHoldings = &MemeMarketError{Kind: KindInsufficientHoldings, Message: "insufficient holdings"}
	ErrInternalConsistency  = &MemeMarketError{Kind: KindInternalConsistency, Message: "internal consistency error"}
	ErrInvalidStock         = &MemeMarketError{Kind: KindInvalidStock, Message: "invalid stock name"}
	ErrMarketClosed         = &MemeMarketError{Kind: KindMarketClosed, Message: "market closed"}
	ErrConflict             = &MemeMarketError{Kind: KindConflict, Message: "already exists"}
)

// KindOf returns the kind of a MemeMarketError anywhere in the chain, or "" for other errors.
func KindOf(err error) ErrorKind {
	var me *MemeMarketError
	if errors.As(err, &me) {
		return me.Kind
	}
	return ""
}

// IsBusinessError reports whether err is an expected rule violation rather than an infrastructure failure.
func IsBusinessError(err error) bool {
	switch KindOf(err) {
	case KindNotFound, KindInsufficientFunds, KindInsufficientHoldings, KindInvalidStock, KindMarketClosed:
		return true
	}
	return false
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries times with exponential backoff.
func RetryWithBackoff(log *logger.Logger, operation string, maxRetries int, baseDelay time.Duration, fn func() error) error {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		log.Warning("Attempt %d/%d failed for %s: %v. Retrying in %v", attempt+1, maxRetries, operation, err, delay)
		time.Sleep(delay)
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, maxRetries, lastErr)
}
