package solana

import (
	"fmt"

	"github.com/juju/errors"
)

// Transient failure classes. Callers match them with errors.Is and decide
// whether to retry, omit a batch item or surface a retry affordance.
const (
	ErrRateLimited = errors.ConstError("rpc rate limited")
	ErrTimeout     = errors.ConstError("rpc timed out")
	ErrUnavailable = errors.ConstError("rpc unavailable")
)

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Simulation failures reported by sendTransaction preflight.
const codeSimulationFailed = -32002

// IsSimulationFailure reports whether the node rejected a transaction in preflight.
func (e *RPCError) IsSimulationFailure() bool {
	return e.Code == codeSimulationFailed
}

// TransactionError is an on-chain execution failure reported for a landed signature.
type TransactionError struct {
	Signature Signature
	Detail    string
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %s", e.Signature, e.Detail)
}

// IsTransient reports whether err belongs to one of the retryable classes.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnavailable)
}
