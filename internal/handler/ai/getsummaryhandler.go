package ai

import (
	"net/http"

	"github.com/inkos/inkd/internal/handler"
	"github.com/inkos/inkd/internal/httputil"
	"github.com/inkos/inkd/internal/svc"
)

// GetSummaryHandler returns a stored summary for a target. Without a version
// query parameter it returns the latest one.
func GetSummaryHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		targetType := httputil.PathVar(r, "targetType")
		targetID := httputil.PathVar(r, "targetId")
		version := httputil.QueryInt(r, "version", 0)

		if version > 0 {
			sum, err := svcCtx.DB.GetSummaryVersion(ctx, targetType, targetID, version)
			if err != nil {
				handler.Error(w, err)
				return
			}
			httputil.OkJSON(w, sum)
			return
		}

		sum, err := svcCtx.DB.LatestSummary(ctx, targetType, targetID)
		if err != nil {
			handler.Error(w, err)
			return
		}
		httputil.OkJSON(w, sum)
	}
}
