package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind classifies business errors so adapters can map them without parsing
// prose. Messages are user-facing (Spanish), details are structured.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindIntegrity  Kind = "integrity"
)

// Error is the tagged error returned by all services for business-rule
// violations. Details holds the structured payload (missing keys, shortfall
// list, expected/diff) when the caller needs more than the message.
type Error struct {
	Kind    Kind
	Message string
	Details any
}

func (e *Error) Error() string { return e.Message }

func newErr(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is a service error of the given kind.
func IsKind(err error, kind Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == kind
}

// Details extracts the typed detail payload from err, if present.
func Details[T any](err error) (T, bool) {
	var zero T
	var se *Error
	if !errors.As(err, &se) || se.Details == nil {
		return zero, false
	}
	d, ok := se.Details.(T)
	return d, ok
}

// InsufficientItem describes one cart line that could not be fulfilled.
type InsufficientItem struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

// CashMismatch is attached to the cash-count conflict on close: the caller
// shows Expected/Diff and may retry with force=true.
type CashMismatch struct {
	ExpectedCashEnd decimal.Decimal `json:"expected_cash_end"`
	CashDiff        decimal.Decimal `json:"cash_diff"`
	NeedsForce      bool            `json:"needs_force"`
}

// MissingProducts lists cart keys with no catalog row.
type MissingProducts struct {
	Keys []string `json:"keys"`
}
