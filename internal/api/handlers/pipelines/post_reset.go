package pipelines

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/go-txpipeline/internal/api"
)

func PostResetRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Pipelines.POST("/:name/reset", postResetHandler(s))
}

func postResetHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		name, err := pipelineName(c)
		if err != nil {
			return err
		}

		return c.JSON(http.StatusOK, s.Orchestrator.Reset(name))
	}
}
