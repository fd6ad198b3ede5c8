package pipelines

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github/chapool/go-txpipeline/internal/api"
	"github/chapool/go-txpipeline/internal/util"
	"github/chapool/go-txpipeline/internal/wallet/journal"
)

func GetJournalRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Pipelines.GET("/:name/journal", getJournalHandler(s))
}

type getJournalResponse struct {
	Entries []journal.Entry `json:"entries"`
}

func getJournalHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		name, err := pipelineName(c)
		if err != nil {
			return err
		}

		limit := journal.DefaultListLimit
		if raw := c.QueryParam("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit <= 0 {
				return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
			}
		}

		entries, err := s.Journal.List(ctx, name, limit)
		if err != nil {
			util.LogFromContext(ctx).Error().Err(err).Str("pipeline", name).Msg("Failed to list journal")
			return err
		}

		if entries == nil {
			entries = []journal.Entry{}
		}

		return c.JSON(http.StatusOK, &getJournalResponse{Entries: entries})
	}
}
