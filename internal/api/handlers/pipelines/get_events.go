package pipelines

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github/chapool/go-txpipeline/internal/api"
	"github/chapool/go-txpipeline/internal/util"
	"github/chapool/go-txpipeline/internal/wallet/saga"
)

const eventSnapshot = "snapshot"

func GetEventsRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Pipelines.GET("/:name/events", getEventsHandler(s))
}

// getEventsHandler streams server-sent events, the current state first.
// With ?attempt=N the stream ends once that attempt left Started.
func getEventsHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		name, err := pipelineName(c)
		if err != nil {
			return err
		}

		var until uint64
		if raw := c.QueryParam("attempt"); raw != "" {
			until, err = strconv.ParseUint(raw, 10, 64)
			if err != nil || until == 0 {
				return echo.NewHTTPError(http.StatusBadRequest, "attempt must be a positive integer")
			}
		}

		sub := s.Store.Subscribe(name)
		defer sub.Close()

		res := c.Response()
		res.Header().Set(echo.HeaderContentType, "text/event-stream")
		res.Header().Set("Cache-Control", "no-cache")
		res.Header().Set("Connection", "keep-alive")
		res.WriteHeader(http.StatusOK)

		if err := writeEvent(res, 0, eventSnapshot, localize(s, c, sub.Snapshot)); err != nil {
			return err
		}

		if until != 0 && settled(sub.Snapshot, until) {
			return nil
		}

		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-sub.Events():
				if !ok {
					return nil
				}

				if err := writeEvent(res, ev.Seq, string(ev.Type), localize(s, c, ev.State)); err != nil {
					log.Debug().Err(err).Msg("Events subscriber went away")
					return nil
				}

				if until != 0 && ev.Type == saga.EventStatus && settled(ev.State, until) {
					return nil
				}
			}
		}
	}
}

// settled reports whether attempt can produce no further events
func settled(state saga.State, attempt uint64) bool {
	if state.Attempt != attempt {
		return state.Attempt > attempt
	}

	return state.Status != saga.StatusStarted
}

func writeEvent(res *echo.Response, seq uint64, event string, state saga.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "failed to encode event")
	}

	if _, err := fmt.Fprintf(res, "id: %d\nevent: %s\ndata: %s\n\n", seq, event, data); err != nil {
		return errors.Wrap(err, "failed to write event")
	}

	res.Flush()

	return nil
}
