package chat

import (
	"net/http"

	"github.com/inkos/inkd/internal/handler"
	"github.com/inkos/inkd/internal/httputil"
	"github.com/inkos/inkd/internal/svc"
	"github.com/inkos/inkd/internal/types"
)

// SetModelHandler re-pins a conversation to a provider/model pair
func SetModelHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req types.SetModelRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		conv, err := svcCtx.Chat.SetModel(ctx, req.ID, req.ProviderID, req.ModelID)
		if err != nil {
			handler.Error(w, err)
			return
		}

		httputil.OkJSON(w, conv)
	}
}
