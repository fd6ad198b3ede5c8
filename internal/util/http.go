package util

import (
	"context"
	"fmt"
	"net/http"

	oaerrors "github.com/go-openapi/errors"
	"github.com/go-openapi/runtime"
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/swag"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github/chapool/go-txpipeline/internal/api/httperrors"
	"github/chapool/go-txpipeline/internal/types"
)

// BindAndValidateBody binds the request body to v and validates it against strfmt.Default
func BindAndValidateBody(c echo.Context, v runtime.Validatable) error {
	binder := &echo.DefaultBinder{}
	if err := binder.BindBody(c, v); err != nil {
		return err
	}

	return validatePayload(c, v)
}

// ValidateAndReturn validates v and sends it as JSON
func ValidateAndReturn(c echo.Context, code int, v runtime.Validatable) error {
	if err := v.Validate(strfmt.Default); err != nil {
		LogFromEchoContext(c).Error().Err(err).Msg("Response failed validation")
		return err
	}

	return c.JSON(code, v)
}

func validatePayload(c echo.Context, v runtime.Validatable) error {
	err := v.Validate(strfmt.Default)
	if err == nil {
		return nil
	}

	var compositeError *oaerrors.CompositeError
	if errors.As(err, &compositeError) {
		LogFromEchoContext(c).Debug().Errs("validation_errors", compositeError.Errors).Msg("Payload did not match schema, returning HTTP validation error")

		return httperrors.NewHTTPValidationError(http.StatusBadRequest, types.PublicHTTPErrorTypeGeneric, http.StatusText(http.StatusBadRequest), formatValidationErrors(c.Request().Context(), compositeError))
	}

	var validationError *oaerrors.Validation
	if errors.As(err, &validationError) {
		LogFromEchoContext(c).Debug().Err(validationError).Msg("Payload did not match schema, returning HTTP validation error")

		return httperrors.NewHTTPValidationError(http.StatusBadRequest, types.PublicHTTPErrorTypeGeneric, http.StatusText(http.StatusBadRequest), []*types.HTTPValidationErrorDetail{
			validationDetail(validationError),
		})
	}

	LogFromEchoContext(c).Error().Err(err).Msg("Failed to validate payload, returning generic HTTP error")

	return err
}

func formatValidationErrors(ctx context.Context, err *oaerrors.CompositeError) []*types.HTTPValidationErrorDetail {
	valErrs := make([]*types.HTTPValidationErrorDetail, 0, len(err.Errors))
	for _, e := range err.Errors {
		switch ee := e.(type) {
		case *oaerrors.Validation:
			valErrs = append(valErrs, validationDetail(ee))
		case *oaerrors.CompositeError:
			valErrs = append(valErrs, formatValidationErrors(ctx, ee)...)
		default:
			LogFromContext(ctx).Warn().Err(e).Str("err_type", fmt.Sprintf("%T", e)).Msg("Received unknown error type while validating payload, skipping")
		}
	}

	return valErrs
}

func validationDetail(e *oaerrors.Validation) *types.HTTPValidationErrorDetail {
	return &types.HTTPValidationErrorDetail{
		Key:   swag.String(e.Name),
		In:    swag.String(e.In),
		Error: swag.String(e.Error()),
	}
}
