package logbook

import (
	"net/http"

	"github.com/inkos/inkd/internal/handler"
	"github.com/inkos/inkd/internal/httputil"
	"github.com/inkos/inkd/internal/svc"
)

// ListLogbookHandler returns digest entries newest-first
func ListLogbookHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := httputil.QueryInt(r, "limit", 30)

		entries, err := svcCtx.DB.ListLogbookEntries(r.Context(), limit)
		if err != nil {
			handler.Error(w, err)
			return
		}

		httputil.OkJSON(w, map[string]any{"entries": entries})
	}
}
