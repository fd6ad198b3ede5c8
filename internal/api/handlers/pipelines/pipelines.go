package pipelines

import (
	"github.com/labstack/echo/v4"
	"github/chapool/go-txpipeline/internal/api/httperrors"
	"github/chapool/go-txpipeline/internal/types"
)

const paramName = "name"

func pipelineName(c echo.Context) (string, error) {
	name := c.Param(paramName)
	if !types.KnownPipeline(name) {
		return "", httperrors.ErrNotFoundUnknownPipeline
	}

	return name, nil
}
