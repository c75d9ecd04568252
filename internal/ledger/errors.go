package ledger

import "fmt"

// ValidationError rejects a request before any read or write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// InsufficientFundsError is a terminal rejection of a BUY whose cost exceeds
// the available balance. Carries both figures so the caller can render a
// precise message.
type InsufficientFundsError struct {
	Required  float64
	Available float64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient balance: required %.2f, available %.2f", e.Required, e.Available)
}

// InsufficientSharesError is a terminal rejection of a SELL for more shares
// than the user's net holding at evaluation time.
type InsufficientSharesError struct {
	Symbol    string
	Requested int64
	Owned     int64
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("insufficient shares of %s: requested %d, owned %d", e.Symbol, e.Requested, e.Owned)
}
