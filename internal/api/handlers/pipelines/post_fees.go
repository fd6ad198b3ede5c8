package pipelines

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/go-txpipeline/internal/api"
	"github/chapool/go-txpipeline/internal/types"
	"github/chapool/go-txpipeline/internal/util"
)

func PostFeesRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Pipelines.POST("/:name/fees", postFeesHandler(s))
}

func postFeesHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		if _, err := pipelineName(c); err != nil {
			return err
		}

		var body types.PostFeesPayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		candidates, err := s.Estimator.EstimateFee(ctx, body.Descriptor(), body.Count)
		if err != nil {
			log.Debug().Err(err).Str("descriptor", body.Descriptor().Key()).Msg("Failed to estimate fee")
			return err
		}

		response := &types.PostFeesResponse{
			Candidates: make([]*types.FeeCandidate, 0, len(candidates)),
		}
		for _, candidate := range candidates {
			response.Candidates = append(response.Candidates, types.FeeCandidateFromDomain(candidate))
		}

		return util.ValidateAndReturn(c, http.StatusOK, response)
	}
}
