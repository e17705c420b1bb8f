package logbook

import (
	"net/http"

	"github.com/inkos/inkd/internal/handler"
	"github.com/inkos/inkd/internal/httputil"
	"github.com/inkos/inkd/internal/svc"
)

// GetLogbookHandler returns one day's digest entry by date (YYYY-MM-DD)
func GetLogbookHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := httputil.PathVar(r, "date")

		entry, err := svcCtx.DB.GetLogbookEntry(r.Context(), date)
		if err != nil {
			handler.Error(w, err)
			return
		}

		httputil.OkJSON(w, entry)
	}
}
