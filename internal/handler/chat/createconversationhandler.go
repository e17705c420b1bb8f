package chat

import (
	"net/http"

	"github.com/inkos/inkd/internal/handler"
	"github.com/inkos/inkd/internal/httputil"
	"github.com/inkos/inkd/internal/logging"
	"github.com/inkos/inkd/internal/svc"
	"github.com/inkos/inkd/internal/types"
)

// CreateConversationHandler starts a new conversation pinned to a runtime
func CreateConversationHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req types.CreateConversationRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		conv, err := svcCtx.Chat.Create(ctx, req.Title, req.ProviderID, req.ModelID)
		if err != nil {
			logging.Errorf("failed to create conversation: %v", err)
			handler.Error(w, err)
			return
		}

		httputil.OkJSON(w, conv)
	}
}
