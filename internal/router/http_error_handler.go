package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github/chapool/go-txpipeline/internal/api/httperrors"
	"github/chapool/go-txpipeline/internal/types"
	"github/chapool/go-txpipeline/internal/util"
)

// HTTPErrorHandler renders every error as an HTTPError body
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	log := util.LogFromEchoContext(c)

	var httpErr *httperrors.HTTPError
	var echoErr *echo.HTTPError

	switch {
	case errors.As(err, &httpErr):
	case errors.As(err, &echoErr):
		httpErr = httperrors.NewFromEcho(echoErr)
	default:
		if mapped := httperrors.FromPipelineError(err); mapped != nil {
			httpErr = mapped
		} else {
			httpErr = httperrors.NewHTTPError(http.StatusInternalServerError, types.PublicHTTPErrorTypeGeneric, http.StatusText(http.StatusInternalServerError))
			httpErr.Internal = err
		}
	}

	if httpErr.Code >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", httpErr.Code).Msg("Request failed")
	} else {
		log.Debug().Err(err).Int("status", httpErr.Code).Msg("Request rejected")
	}

	var sendErr error
	if c.Request().Method == http.MethodHead {
		sendErr = c.NoContent(httpErr.Code)
	} else {
		sendErr = c.JSON(httpErr.Code, httpErr)
	}

	if sendErr != nil {
		log.Warn().Err(sendErr).Msg("Failed to send error response")
	}
}
