package chat

import (
	"net/http"

	"github.com/inkos/inkd/internal/handler"
	"github.com/inkos/inkd/internal/httputil"
	"github.com/inkos/inkd/internal/svc"
)

// ListConversationsHandler returns conversations newest-first
func ListConversationsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := httputil.QueryInt(r, "limit", 50)

		conversations, err := svcCtx.Chat.List(r.Context(), limit)
		if err != nil {
			handler.Error(w, err)
			return
		}

		httputil.OkJSON(w, map[string]any{"conversations": conversations})
	}
}
