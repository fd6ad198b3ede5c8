package common

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github/chapool/go-txpipeline/internal/api"
)

func GetHealthyRoute(s *api.Server) *echo.Route {
	return s.Router.Management.GET("/healthy", getHealthyHandler(s))
}

func getHealthyHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.Ready() {
			return c.String(StatusNotReady, "Not ready.")
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), s.Config.Management.LivenessTimeout)
		defer cancel()

		failed := ProbeLiveness(ctx, s, s.Config.Management.ProbeWriteablePathsAbs, s.Config.Management.ProbeWriteableTouchfile)
		if len(failed) > 0 {
			return c.String(StatusNotReady, strings.Join(failed, "\n"))
		}

		return c.String(http.StatusOK, "Healthy.")
	}
}
