package ai

import (
	"net/http"

	"github.com/inkos/inkd/internal/handler"
	"github.com/inkos/inkd/internal/httputil"
	"github.com/inkos/inkd/internal/svc"
)

// GetSummaryByIDHandler returns a single stored summary by its row id.
func GetSummaryByIDHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := svcCtx.DB.GetSummary(r.Context(), httputil.PathVar(r, "id"))
		if err != nil {
			handler.Error(w, err)
			return
		}
		httputil.OkJSON(w, sum)
	}
}
