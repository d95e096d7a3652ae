package voting

import (
	"context"

	"github.com/juju/errors"

	"github.com/stake-plus/solana-dao-radar/src/solana"
)

// Category groups submission failures by what the user can do about them.
type Category string

const (
	CategoryRejected     Category = "rejected"
	CategorySimulation   Category = "simulation"
	CategoryTimeout      Category = "timeout"
	CategoryRateLimited  Category = "rate_limited"
	CategoryNetwork      Category = "network"
	CategoryInvalidInput Category = "invalid_input"
	CategoryUnknown      Category = "unknown"
)

// ErrSignatureDeclined is returned by signers when the wallet refused to sign.
const ErrSignatureDeclined = errors.ConstError("signature declined")

// SubmitError is the classified failure of a vote attempt. The local view
// has already been rolled back when it is returned.
type SubmitError struct {
	Category Category `json:"category"`
	Message  string   `json:"message"`
	cause    error
}

func (e *SubmitError) Error() string { return string(e.Category) + ": " + e.Message }

func (e *SubmitError) Unwrap() error { return e.cause }

// Classify maps an error from any submission step to a SubmitError.
func Classify(err error) *SubmitError {
	if err == nil {
		return nil
	}
	var se *SubmitError
	if errors.As(err, &se) {
		return se
	}
	e := &SubmitError{cause: err}
	var rpcErr *solana.RPCError
	var txErr *solana.TransactionError
	switch {
	case errors.Is(err, ErrSignatureDeclined):
		e.Category, e.Message = CategoryRejected, "The wallet declined to sign the vote."
	case errors.As(err, &rpcErr) && rpcErr.IsSimulationFailure():
		e.Category, e.Message = CategorySimulation, "The vote was rejected in simulation: "+rpcErr.Message
	case errors.As(err, &txErr):
		e.Category, e.Message = CategorySimulation, "The vote transaction failed on-chain: "+txErr.Detail
	case errors.Is(err, solana.ErrRateLimited):
		e.Category, e.Message = CategoryRateLimited, "The network is rate limiting requests. Try again shortly."
	case errors.Is(err, solana.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		e.Category, e.Message = CategoryTimeout, "The vote was not confirmed in time. Check the proposal before voting again."
	case errors.Is(err, solana.ErrUnavailable), errors.Is(err, context.Canceled):
		e.Category, e.Message = CategoryNetwork, "The network could not be reached."
	case errors.Is(err, errors.NotValid), errors.Is(err, errors.NotFound):
		e.Category, e.Message = CategoryInvalidInput, err.Error()
	default:
		e.Category, e.Message = CategoryUnknown, err.Error()
	}
	return e
}
