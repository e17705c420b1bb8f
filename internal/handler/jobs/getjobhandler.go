package jobs

import (
	"net/http"

	"github.com/inkos/inkd/internal/handler"
	"github.com/inkos/inkd/internal/httputil"
	"github.com/inkos/inkd/internal/svc"
)

// GetJobHandler returns a job with its state and stored result or error
func GetJobHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := httputil.PathVar(r, "id")

		job, err := svcCtx.DB.GetJob(r.Context(), id)
		if err != nil {
			handler.Error(w, err)
			return
		}

		httputil.OkJSON(w, job)
	}
}
