package model

import (
	"errors"
	"fmt"
)

// ErrorKind buckets venue failures by how callers should react.
type ErrorKind string

const (
	// KindAuth: 401/403. Logged, never auto-retried.
	KindAuth ErrorKind = "auth"
	// KindTransient: timeout, network failure, non-JSON body. Retried
	// naturally on the poller's next tick.
	KindTransient ErrorKind = "transient"
	// KindBusiness: order rejected, insufficient balance. Surfaced
	// verbatim, not retried.
	KindBusiness ErrorKind = "business"
	// KindNotFound: the venue no longer knows the order id.
	KindNotFound ErrorKind = "not_found"
)

// VenueError wraps a failed venue call with enough context to classify it.
type VenueError struct {
	Venue string
	Op    string
	Kind  ErrorKind
	Err   error
}

func (e *VenueError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Venue, e.Op, e.Kind, e.Err)
}

func (e *VenueError) Unwrap() error { return e.Err }

// NewVenueError builds a classified venue error.
func NewVenueError(venue, op string, kind ErrorKind, err error) *VenueError {
	return &VenueError{Venue: venue, Op: op, Kind: kind, Err: err}
}

// ErrKind extracts the classification, defaulting to transient for plain
// transport errors.
func ErrKind(err error) ErrorKind {
	var ve *VenueError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return KindTransient
}

var (
	// ErrOrderNotFound is matched via errors.Is when a venue reports an
	// unknown order id.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidSymbol rejects symbols without a BASE_QUOTE separator.
	ErrInvalidSymbol = errors.New("invalid symbol, want BASE_QUOTE")

	// ErrInvalidTarget rejects non-finite or negative position targets.
	ErrInvalidTarget = errors.New("invalid target quantity")

	// ErrTradeNotFound is returned for unknown local trade ids.
	ErrTradeNotFound = errors.New("trade not found")

	// ErrStaleBook rejects execution when the book drifted past the
	// configured tolerance since the confirming precheck.
	ErrStaleBook = errors.New("book moved beyond drift tolerance since precheck")
)
