package manifold

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the error taxonomy of the engine. An error built with Wrap, or
// one of the Err* sentinels, carries exactly one Kind, matched via
// errors.Is; errors returned without one of them carry no Kind.
type Kind string

const (
	KindNotFound             Kind = "not_found"
	KindSchemaInvalid        Kind = "schema_invalid"
	KindStageLocked          Kind = "stage_locked_by_precondition"
	KindTerminalStage        Kind = "terminal_stage"
	KindMergeDeclined        Kind = "merge_declined"
	KindManualValueRequired  Kind = "manual_value_required"
	KindRemoteFailure        Kind = "remote_failure"
	KindStoreLocked          Kind = "store_locked"
	KindIO                   Kind = "io_failure"
	KindCancelled            Kind = "cancelled"
)

// sentinel errors, one per Kind, so callers can do errors.Is(err, manifold.ErrNotFound).
var (
	ErrNotFound            = &kindError{kind: KindNotFound, msg: "not found"}
	ErrSchemaInvalid       = &kindError{kind: KindSchemaInvalid, msg: "schema invalid"}
	ErrStageLocked         = &kindError{kind: KindStageLocked, msg: "stage locked by precondition"}
	ErrTerminalStage       = &kindError{kind: KindTerminalStage, msg: "stage is terminal"}
	ErrMergeDeclined       = &kindError{kind: KindMergeDeclined, msg: "merge declined"}
	ErrManualValueRequired = &kindError{kind: KindManualValueRequired, msg: "manual value required"}
	ErrRemoteFailure       = &kindError{kind: KindRemoteFailure, msg: "remote failure"}
	ErrStoreLocked         = &kindError{kind: KindStoreLocked, msg: "store locked"}
	ErrIO                  = &kindError{kind: KindIO, msg: "io failure"}
	ErrCancelled           = &kindError{kind: KindCancelled, msg: "cancelled"}
)

// kindError is a taxonomy sentinel. Comparisons go through errors.Is (via
// the Is method below), not pointer equality, so a wrapped kindError still
// matches its sentinel.
type kindError struct {
	kind Kind
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Is(target error) bool {
	t, ok := target.(*kindError)
	return ok && t.kind == e.kind
}

// Wrap attaches Kind-matching behavior to err while preserving err's own
// message and %w chain, so fmt.Errorf("...: %w", Wrap(KindIO, err)) still
// lets errors.Is(err, manifold.ErrIO) succeed.
type wrappedError struct {
	kind Kind
	err  error
}

func (w *wrappedError) Error() string { return w.err.Error() }
func (w *wrappedError) Unwrap() error { return w.err }
func (w *wrappedError) Is(target error) bool {
	t, ok := target.(*kindError)
	return ok && t.kind == w.kind
}

// Wrap tags err with kind so errors.Is(err, sentinelFor(kind)) reports true,
// without losing err's message or further %w chain.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &wrappedError{kind: kind, err: err}
}

func sentinelFor(kind Kind) error {
	switch kind {
	case KindNotFound:
		return ErrNotFound
	case KindSchemaInvalid:
		return ErrSchemaInvalid
	case KindStageLocked:
		return ErrStageLocked
	case KindTerminalStage:
		return ErrTerminalStage
	case KindMergeDeclined:
		return ErrMergeDeclined
	case KindManualValueRequired:
		return ErrManualValueRequired
	case KindRemoteFailure:
		return ErrRemoteFailure
	case KindStoreLocked:
		return ErrStoreLocked
	case KindIO:
		return ErrIO
	case KindCancelled:
		return ErrCancelled
	default:
		return nil
	}
}

// KindOf returns the taxonomy Kind carried by err, if any, and whether one
// was found. Used by wrapper layers (CLI/MCP) to print the error category
// alongside the message.
func KindOf(err error) (Kind, bool) {
	for _, k := range []Kind{
		KindNotFound, KindSchemaInvalid, KindStageLocked, KindTerminalStage, KindMergeDeclined,
		KindManualValueRequired, KindRemoteFailure, KindStoreLocked, KindIO, KindCancelled,
	} {
		if errors.Is(err, sentinelFor(k)) {
			return k, true
		}
	}
	return "", false
}

// ValidationError reports one schema-validation failure at a specific field
// path.
type ValidationError struct {
	Path   string
	Reason string
}

func (v ValidationError) Error() string { return fmt.Sprintf("%s: %s", v.Path, v.Reason) }

// ValidationErrors is a non-empty slice of ValidationError; it is itself an
// error so callers can errors.Is(err, manifold.ErrSchemaInvalid) against it
// when wrapped.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}
