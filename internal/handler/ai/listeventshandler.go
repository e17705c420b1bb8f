package ai

import (
	"net/http"

	"github.com/inkos/inkd/internal/handler"
	"github.com/inkos/inkd/internal/httputil"
	"github.com/inkos/inkd/internal/svc"
)

// ListEventsHandler returns persisted runtime events newest-first. An empty
// module filter returns events from every module.
func ListEventsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		module := httputil.QueryString(r, "module", "")
		limit := httputil.QueryInt(r, "limit", 100)

		events, err := svcCtx.Events.List(r.Context(), module, limit)
		if err != nil {
			handler.Error(w, err)
			return
		}

		httputil.OkJSON(w, map[string]any{"events": events})
	}
}
