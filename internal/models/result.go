package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/desertthunder/gmx/internal/shared"
)

// FailureKind classifies why a call or step did not succeed.
type FailureKind int

const (
	Transport          FailureKind = iota + 1 // network or envelope failure; retryable by the caller
	Rejected                                  // the service declined the request
	SessionExpired                            // re-authenticate; never retried
	EntityVanished                            // target disappeared between mutation and verification
	UnknownDerivation                         // taxonomy gap
	DuplicateStepOrder                        // workflow definition error
	Unsatisfied                               // a verification observed a mismatch
	Invalid                                   // parameters failed shape validation before the call
)

var failureKinds = []struct {
	kind     FailureKind
	name     string
	sentinel error
}{
	{Transport, "transport", shared.ErrTransport},
	{Rejected, "rejected", shared.ErrRejected},
	{SessionExpired, "session_expired", shared.ErrSessionExpired},
	{EntityVanished, "entity_vanished", shared.ErrEntityVanished},
	{UnknownDerivation, "unknown_derivation", shared.ErrUnknownDerivation},
	{DuplicateStepOrder, "duplicate_step_order", shared.ErrDuplicateStepOrder},
	{Unsatisfied, "unsatisfied", shared.ErrUnsatisfied},
	{Invalid, "invalid", shared.ErrInvalidInput},
}

func (k FailureKind) String() string {
	for _, fk := range failureKinds {
		if fk.kind == k {
			return fk.name
		}
	}
	return fmt.Sprintf("failure(%d)", int(k))
}

// Sentinel returns the shared error a failure of this kind unwraps to.
func (k FailureKind) Sentinel() error {
	for _, fk := range failureKinds {
		if fk.kind == k {
			return fk.sentinel
		}
	}
	return nil
}

// Retryable reports whether a caller may reasonably repeat the same request.
func (k FailureKind) Retryable() bool {
	return k == Transport
}

// ParseFailureKind is the inverse of [FailureKind.String].
func ParseFailureKind(s string) (FailureKind, error) {
	for _, fk := range failureKinds {
		if fk.name == s {
			return fk.kind, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown failure kind %q", shared.ErrInvalidArgument, s)
}

// Failure is the typed error carried by a failed [CallResult].
type Failure struct {
	Kind   FailureKind
	Op     string // operation or step name
	Detail string
	Err    error // underlying cause, if any
}

// NewFailure builds a failure of kind with a formatted detail.
func NewFailure(kind FailureKind, op, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// WrapFailure builds a failure of kind caused by err.
func WrapFailure(kind FailureKind, op string, err error) *Failure {
	return &Failure{Kind: kind, Op: op, Detail: err.Error(), Err: err}
}

func (f *Failure) Error() string {
	if f.Op == "" {
		return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", f.Op, f.Kind, f.Detail)
}

// Unwrap exposes both the kind's sentinel and the underlying cause to [errors.Is].
func (f *Failure) Unwrap() []error {
	errs := []error{}
	if s := f.Kind.Sentinel(); s != nil {
		errs = append(errs, s)
	}
	if f.Err != nil {
		errs = append(errs, f.Err)
	}
	return errs
}

// Is matches another *Failure of the same kind, so a bare &Failure{Kind: k} works as a target.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	if !ok {
		return false
	}
	return f.Kind == t.Kind
}

// AsFailure extracts a *Failure from err's chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// KindOf classifies err by its failure kind, matching shared sentinels when err is not a *Failure.
// Unclassified errors are treated as [Transport].
func KindOf(err error) FailureKind {
	if f, ok := AsFailure(err); ok {
		return f.Kind
	}
	for _, fk := range failureKinds {
		if errors.Is(err, fk.sentinel) {
			return fk.kind
		}
	}
	switch {
	case errors.Is(err, shared.ErrUnclassifiedField), errors.Is(err, shared.ErrInvalidFieldType),
		errors.Is(err, shared.ErrMissingArgument), errors.Is(err, shared.ErrInvalidArgument):
		return Invalid
	}
	return Transport
}

// CallResult is the outcome of one dispatched operation: a payload or a failure, never both.
type CallResult struct {
	payload json.RawMessage
	failure *Failure
}

// Success wraps a payload.
func Success(payload json.RawMessage) CallResult {
	if payload == nil {
		payload = json.RawMessage("null")
	}
	return CallResult{payload: payload}
}

// Fail wraps a failure.
func Fail(f *Failure) CallResult {
	return CallResult{failure: f}
}

func (r CallResult) OK() bool                 { return r.failure == nil }
func (r CallResult) Payload() json.RawMessage { return r.payload }
func (r CallResult) Failure() *Failure        { return r.failure }

// Err returns the failure as an error, or nil on success.
func (r CallResult) Err() error {
	if r.failure == nil {
		return nil
	}
	return r.failure
}

// Decode unmarshals the payload into v. It returns the failure for a failed result.
func (r CallResult) Decode(v any) error {
	if r.failure != nil {
		return r.failure
	}
	if err := json.Unmarshal(r.payload, v); err != nil {
		return WrapFailure(Transport, "decode", err)
	}
	return nil
}
