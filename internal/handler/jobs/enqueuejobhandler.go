package jobs

import (
	"net/http"
	"time"

	"github.com/inkos/inkd/internal/handler"
	"github.com/inkos/inkd/internal/httputil"
	"github.com/inkos/inkd/internal/svc"
	"github.com/inkos/inkd/internal/types"
)

// EnqueueJobHandler queues a background job. With run_now the job is executed
// inline and the response carries its final state.
func EnqueueJobHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req types.EnqueueJobRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		if req.RunNow {
			job, err := svcCtx.Jobs.RunNow(ctx, req.Kind, req.Payload)
			if err != nil {
				handler.Error(w, err)
				return
			}
			httputil.OkJSON(w, job)
			return
		}

		var runAt *time.Time
		if req.RunAt != nil {
			t := time.Unix(*req.RunAt, 0).UTC()
			runAt = &t
		}
		job, err := svcCtx.Jobs.Enqueue(ctx, req.Kind, req.Payload, runAt)
		if err != nil {
			handler.Error(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusAccepted, job)
	}
}
