package handlers

import (
	"github/chapool/go-txpipeline/internal/api"
	"github/chapool/go-txpipeline/internal/api/handlers/common"
	"github/chapool/go-txpipeline/internal/api/handlers/pipelines"
)

// AttachAllRoutes registers every handler route on s.Router
func AttachAllRoutes(s *api.Server) {
	s.Router.Routes = append(s.Router.Routes,
		common.GetHealthyRoute(s),
		common.GetReadyRoute(s),
		pipelines.GetEventsRoute(s),
		pipelines.GetJournalRoute(s),
		pipelines.GetStatusRoute(s),
		pipelines.PostCancelRoute(s),
		pipelines.PostFeesRoute(s),
		pipelines.PostResetRoute(s),
		pipelines.PostSubmitRoute(s),
	)
}
