package httperrors

import (
	"net/http"

	"github.com/pkg/errors"
	"github/chapool/go-txpipeline/internal/types"
	"github/chapool/go-txpipeline/internal/wallet/saga"
	"github/chapool/go-txpipeline/internal/wallet/txfail"
)

var (
	ErrNotFoundUnknownPipeline = NewHTTPError(http.StatusNotFound, types.PublicHTTPErrorTypeUnknownPipeline, "Unknown pipeline.")
	ErrConflictAlreadyStarted  = NewHTTPError(http.StatusConflict, types.PublicHTTPErrorTypeAlreadyStarted, "The pipeline must be reset before a new attempt can start.")
)

// FromPipelineError maps errors returned synchronously by the pipeline to HTTP errors.
// It returns nil for errors it does not know.
func FromPipelineError(err error) *HTTPError {
	if errors.Is(err, saga.ErrAlreadyStarted) {
		return ErrConflictAlreadyStarted
	}

	failure, ok := txfail.As(err)
	if !ok {
		return nil
	}

	var httpErr *HTTPError

	//nolint:exhaustive // everything else is an internal error
	switch failure.Reason {
	case txfail.ReasonInvalidDraft:
		httpErr = NewHTTPErrorWithDetail(http.StatusBadRequest, types.PublicHTTPErrorTypeInvalidDraft, "Invalid transaction.", failure.Summary)
	case txfail.ReasonEstimationRejected:
		httpErr = NewHTTPErrorWithDetail(http.StatusUnprocessableEntity, types.PublicHTTPErrorTypeEstimationRejected, "Fee estimation rejected.", failure.Summary)
	case txfail.ReasonNetworkUnavailable:
		httpErr = NewHTTPError(http.StatusServiceUnavailable, types.PublicHTTPErrorTypeNetworkUnavailable, "Network unavailable.")
	default:
		return nil
	}

	httpErr.Internal = err

	return httpErr
}
