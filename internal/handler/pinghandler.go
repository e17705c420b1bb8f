package handler

import (
	"net/http"

	"github.com/inkos/inkd/internal/httputil"
	"github.com/inkos/inkd/internal/svc"
)

// PingHandler is the liveness probe
func PingHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.OkJSON(w, map[string]string{"status": "ok"})
	}
}

// DBStatusHandler reports the table inventory with row counts
func DBStatusHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tables, err := svcCtx.DB.Status(r.Context())
		if err != nil {
			Error(w, err)
			return
		}
		httputil.OkJSON(w, map[string]any{"tables": tables})
	}
}
