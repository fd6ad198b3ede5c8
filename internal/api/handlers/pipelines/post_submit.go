package pipelines

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/go-txpipeline/internal/api"
	"github/chapool/go-txpipeline/internal/types"
	"github/chapool/go-txpipeline/internal/util"
)

func PostSubmitRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Pipelines.POST("/:name/submit", postSubmitHandler(s))
}

// postSubmitHandler starts an attempt and answers right away, progress is
// observed through the status and events routes.
func postSubmitHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		name, err := pipelineName(c)
		if err != nil {
			return err
		}

		var body types.PostSubmitPayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		draft, fee, err := body.ToDraft()
		if err != nil {
			return err
		}

		handle, err := s.Orchestrator.SubmitDraft(ctx, name, draft, fee, nil)
		if err != nil {
			log.Debug().Err(err).Str("pipeline", name).Msg("Failed to submit transaction")
			return err
		}

		return c.JSON(http.StatusAccepted, handle)
	}
}
