package pipelines

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/go-txpipeline/internal/api"
	"github/chapool/go-txpipeline/internal/wallet/saga"
)

// echo only names the Accept and Accept-Encoding headers
const headerAcceptLanguage = "Accept-Language"

func GetStatusRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Pipelines.GET("/:name/status", getStatusHandler(s))
}

func getStatusHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		name, err := pipelineName(c)
		if err != nil {
			return err
		}

		return c.JSON(http.StatusOK, localize(s, c, s.Store.Get(name)))
	}
}

// localize translates the failure summary when the client asked for a language
func localize(s *api.Server, c echo.Context, state saga.State) saga.State {
	header := c.Request().Header.Get(headerAcceptLanguage)
	if state.Failure == nil || header == "" {
		return state
	}

	failure := *state.Failure
	failure.Summary = s.I18n.SummarizeIn(failure.Reason, s.I18n.ParseAcceptLanguage(header))
	state.Failure = &failure

	return state
}
