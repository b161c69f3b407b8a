package types

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrUnsupportedChainFamily ErrorKind = "UnsupportedChainFamily"
	ErrUnsupportedChain       ErrorKind = "UnsupportedChain"
	ErrMalformedSignature     ErrorKind = "MalformedSignature"
	ErrInvalidSignature       ErrorKind = "InvalidSignature"
	ErrMessageMismatch        ErrorKind = "MessageMismatch"
	ErrStaleMessage           ErrorKind = "StaleMessage"
	ErrInvalidRequest         ErrorKind = "InvalidRequest"
	ErrBetAmountOutOfRange    ErrorKind = "BetAmountOutOfRange"
	ErrBridgeAmountTooSmall   ErrorKind = "BridgeAmountTooSmall"
	ErrBridgePaymentInvalid   ErrorKind = "BridgePaymentInvalid"
	ErrBridgePaymentPending   ErrorKind = "BridgePaymentPending"
	ErrDuplicateIntent        ErrorKind = "DuplicateIntent"
	ErrEstimationReverted     ErrorKind = "EstimationReverted"
	ErrExecutionReverted      ErrorKind = "ExecutionReverted"
	ErrRpcUnavailable         ErrorKind = "RpcUnavailable"
	ErrStoreUnavailable       ErrorKind = "StoreUnavailable"
	ErrTimeout                ErrorKind = "Timeout"
)

// RelayError is the structured rejection returned to callers. Reason is human readable.
type RelayError struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *RelayError) Error() string {
	if e.Reason == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *RelayError) Unwrap() error {
	return e.Err
}

// Is matches on kind so errors.Is(err, &RelayError{Kind: k}) works for any reason
func (e *RelayError) Is(target error) bool {
	t, ok := target.(*RelayError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Reason == "" || t.Reason == e.Reason)
}

// Retryable reports whether the caller may retry with a fresh nonce without correcting the request
func (e *RelayError) Retryable() bool {
	switch e.Kind {
	case ErrRpcUnavailable, ErrStoreUnavailable, ErrTimeout, ErrBridgePaymentPending:
		return true
	}
	return false
}

func NewError(kind ErrorKind, reason string) *RelayError {
	return &RelayError{Kind: kind, Reason: reason}
}

func Errorf(kind ErrorKind, format string, args ...interface{}) *RelayError {
	return &RelayError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func WrapError(kind ErrorKind, reason string, err error) *RelayError {
	return &RelayError{Kind: kind, Reason: reason, Err: err}
}

// KindOf returns the kind of a relay error, or "" for anything else
func KindOf(err error) ErrorKind {
	var re *RelayError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// ReasonOf returns the human readable reason of a relay error, or err.Error()
func ReasonOf(err error) string {
	var re *RelayError
	if errors.As(err, &re) {
		return re.Reason
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
