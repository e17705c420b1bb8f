package chat

import (
	"net/http"

	"github.com/inkos/inkd/internal/handler"
	"github.com/inkos/inkd/internal/httputil"
	"github.com/inkos/inkd/internal/logging"
	"github.com/inkos/inkd/internal/svc"
)

// RolloverHandler forces a rollover regardless of thresholds. An empty
// conversation is a no-op (rolled=false).
func RolloverHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := httputil.PathVar(r, "id")

		result, err := svcCtx.Chat.ForceRollover(r.Context(), id)
		if err != nil {
			logging.Errorf("forced rollover of %s failed: %v", id, err)
			handler.Error(w, err)
			return
		}

		httputil.OkJSON(w, result)
	}
}
