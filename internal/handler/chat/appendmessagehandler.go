package chat

import (
	"net/http"

	"github.com/inkos/inkd/internal/handler"
	"github.com/inkos/inkd/internal/httputil"
	"github.com/inkos/inkd/internal/logging"
	"github.com/inkos/inkd/internal/svc"
	"github.com/inkos/inkd/internal/types"
)

// AppendMessageHandler adds a message, possibly warning or rolling the
// conversation over into a successor
func AppendMessageHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req types.AppendMessageRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		result, err := svcCtx.Chat.Append(ctx, req.ID, req.Role, req.Body)
		if err != nil {
			logging.Errorf("append to %s failed: %v", req.ID, err)
			handler.Error(w, err)
			return
		}

		httputil.OkJSON(w, result)
	}
}
