package jobs

import (
	"encoding/json"
	"net/http"

	"github.com/inkos/inkd/internal/handler"
	"github.com/inkos/inkd/internal/httputil"
	jobsvc "github.com/inkos/inkd/internal/jobs"
	"github.com/inkos/inkd/internal/svc"
	"github.com/inkos/inkd/internal/types"
)

// RunDigestHandler runs the daily digest inline for a date (empty = yesterday)
func RunDigestHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req types.DigestRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		payload, err := json.Marshal(jobsvc.DigestPayload{Date: req.Date})
		if err != nil {
			handler.Error(w, err)
			return
		}

		job, err := svcCtx.Jobs.RunNow(ctx, jobsvc.KindDailyDigest, payload)
		if err != nil {
			handler.Error(w, err)
			return
		}

		httputil.OkJSON(w, job)
	}
}
