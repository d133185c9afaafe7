// Package xerr is the structured error taxonomy the engine surfaces to its
// façade. The core components (order book, market, merkle, AMMs, router,
// oracle) wrap failures through E so a caller can recover the Kind
// mechanically instead of pattern-matching error strings; pkg/eventlog
// wraps its errors with plain fmt.Errorf and carries no Kind.
package xerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. It is not a type name: callers switch on the
// Kind recovered via KindOf, never on the concrete *Error type.
type Kind int8

const (
	Unknown Kind = iota
	Validation
	NotFound
	Empty
	RatioMismatch
	Insufficient
	NoPath
	HopLimitExceeded
	ArbitrageCycle
	Timeout
	SolverDiverged
	NoData
	InsufficientData
	OutOfRange
	UnknownPair
	DuplicateID
	LiquidityExceeded
	Internal
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Empty:
		return "empty"
	case RatioMismatch:
		return "ratio_mismatch"
	case Insufficient:
		return "insufficient"
	case NoPath:
		return "no_path"
	case HopLimitExceeded:
		return "hop_limit_exceeded"
	case ArbitrageCycle:
		return "arbitrage_cycle"
	case Timeout:
		return "timeout"
	case SolverDiverged:
		return "solver_diverged"
	case NoData:
		return "no_data"
	case InsufficientData:
		return "insufficient_data"
	case OutOfRange:
		return "out_of_range"
	case UnknownPair:
		return "unknown_pair"
	case DuplicateID:
		return "duplicate_id"
	case LiquidityExceeded:
		return "liquidity_exceeded"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error carries a Kind plus enough context (op + fields) for a façade to
// translate mechanically into a stable wire identifier.
type Error struct {
	Kind   Kind
	Op     string
	Fields map[string]any
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a structured error. fields are applied in order as key, value,
// key, value... and silently dropped if unpaired.
func E(kind Kind, op string, err error, fields ...any) *Error {
	m := make(map[string]any, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		if k, ok := fields[i].(string); ok {
			m[k] = fields[i+1]
		}
	}
	return &Error{Kind: kind, Op: op, Fields: m, Err: err}
}

// KindOf extracts the Kind of err, or Unknown if err does not carry one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
