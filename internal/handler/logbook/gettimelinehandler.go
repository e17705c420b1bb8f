package logbook

import (
	"net/http"

	"github.com/inkos/inkd/internal/handler"
	"github.com/inkos/inkd/internal/httputil"
	"github.com/inkos/inkd/internal/svc"
)

// GetTimelineHandler returns the reconstructed activity timeline for a day
func GetTimelineHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := httputil.PathVar(r, "date")

		events, err := svcCtx.DB.ListTimeline(r.Context(), date)
		if err != nil {
			handler.Error(w, err)
			return
		}

		httputil.OkJSON(w, map[string]any{"date": date, "events": events})
	}
}
