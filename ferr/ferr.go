// Package ferr defines the typed error kinds every component raises, so
// callers can recover by kind instead of matching on message text.
package ferr

import "github.com/pkg/errors"

// Kind classifies a fault so callers know the right recovery action without
// inspecting the error text.
type Kind int

const (
	// ConfigInvalid: reject assemble; on reassemble, keep the old graph.
	ConfigInvalid Kind = iota
	// ConfigReferentialIntegrity: same recovery as ConfigInvalid.
	ConfigReferentialIntegrity
	// DataSourceRead: tick-local, treat as missing/stale data, log, continue.
	DataSourceRead
	// DataSourceAuth: surfaced as DataSourceRead, logged prominently.
	DataSourceAuth
	// RelayActuation: tick-local, log, mark the relay as off, continue.
	RelayActuation
	// BeerLogic: tick-local, force both relays off, log an error.
	BeerLogic
	// UnsupportedUnit: treated as ConfigInvalid at assemble time.
	UnsupportedUnit
	// BadValue: treated as ConfigInvalid at assemble time.
	BadValue
	// NotImplemented: the operation is reserved and has no implementation.
	NotImplemented
)

func (k Kind) String() string {
	switch k {
	case ConfigInvalid:
		return "ConfigInvalid"
	case ConfigReferentialIntegrity:
		return "ConfigReferentialIntegrity"
	case DataSourceRead:
		return "DataSourceRead"
	case DataSourceAuth:
		return "DataSourceAuth"
	case RelayActuation:
		return "RelayActuation"
	case BeerLogic:
		return "BeerLogic"
	case UnsupportedUnit:
		return "UnsupportedUnit"
	case BadValue:
		return "BadValue"
	case NotImplemented:
		return "NotImplemented"
	default:
		return "Unknown"
	}
}

// Error is a typed, wrapped fault. Component is the name of the offending
// object (e.g. a relay or datasource name), useful for log correlation.
type Error struct {
	Kind      Kind
	Component string
	cause     error
}

func (e *Error) Error() string {
	if e.Component != "" {
		return e.Kind.String() + " (" + e.Component + "): " + e.cause.Error()
	}
	return e.Kind.String() + ": " + e.cause.Error()
}

// Unwrap allows errors.Is/errors.As to see through to the wrapped cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a typed error wrapping msg with a stack trace via pkg/errors.
func New(kind Kind, component, msg string) *Error {
	return &Error{Kind: kind, Component: component, cause: errors.New(msg)}
}

// Wrap creates a typed error wrapping an existing error with additional
// context, preserving the original via Unwrap.
func Wrap(kind Kind, component string, err error, msg string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Component: component, cause: errors.Wrap(err, msg)}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	fe, ok := err.(*Error)
	if !ok {
		return false
	}
	return fe.Kind == kind
}
