package httperrors

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/go-txpipeline/internal/types"
)

// HTTPError is the JSON body of every error response
type HTTPError struct {
	Code             int                                `json:"status"`
	Type             types.PublicHTTPErrorType          `json:"type"`
	Title            string                             `json:"title"`
	Detail           string                             `json:"detail,omitempty"`
	ValidationErrors []*types.HTTPValidationErrorDetail `json:"validationErrors,omitempty"`
	Internal         error                              `json:"-"`
}

func NewHTTPError(code int, errorType types.PublicHTTPErrorType, title string) *HTTPError {
	return &HTTPError{
		Code:  code,
		Type:  errorType,
		Title: title,
	}
}

func NewHTTPErrorWithDetail(code int, errorType types.PublicHTTPErrorType, title string, detail string) *HTTPError {
	return &HTTPError{
		Code:   code,
		Type:   errorType,
		Title:  title,
		Detail: detail,
	}
}

func NewHTTPValidationError(code int, errorType types.PublicHTTPErrorType, title string, validationErrors []*types.HTTPValidationErrorDetail) *HTTPError {
	return &HTTPError{
		Code:             code,
		Type:             errorType,
		Title:            title,
		ValidationErrors: validationErrors,
	}
}

// NewFromEcho converts an echo error keeping its status code
func NewFromEcho(e *echo.HTTPError) *HTTPError {
	title := http.StatusText(e.Code)
	if msg, ok := e.Message.(string); ok && msg != "" {
		title = msg
	}

	return &HTTPError{
		Code:     e.Code,
		Type:     types.PublicHTTPErrorTypeGeneric,
		Title:    title,
		Internal: e.Internal,
	}
}

func (e *HTTPError) Error() string {
	var msg string
	if e.Detail != "" {
		msg = fmt.Sprintf("HTTPError %d (%s): %s - %s", e.Code, e.Type, e.Title, e.Detail)
	} else {
		msg = fmt.Sprintf("HTTPError %d (%s): %s", e.Code, e.Type, e.Title)
	}

	if e.Internal != nil {
		msg = fmt.Sprintf("%s, %v", msg, e.Internal)
	}

	return msg
}

func (e *HTTPError) Unwrap() error {
	return e.Internal
}
