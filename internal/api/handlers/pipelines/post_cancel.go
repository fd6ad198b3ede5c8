package pipelines

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/go-txpipeline/internal/api"
	"github/chapool/go-txpipeline/internal/types"
	"github/chapool/go-txpipeline/internal/util"
)

func PostCancelRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Pipelines.POST("/:name/cancel", postCancelHandler(s))
}

// postCancelHandler is idempotent, cancelling an attempt that is no longer live reports cancelled=false
func postCancelHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		name, err := pipelineName(c)
		if err != nil {
			return err
		}

		var body types.PostCancelPayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		cancelled := s.Orchestrator.Cancel(name, body.Attempt)

		return c.JSON(http.StatusOK, &types.PostCancelResponse{
			Cancelled: cancelled,
			State:     s.Store.Get(name),
		})
	}
}
