package chat

import (
	"net/http"

	"github.com/inkos/inkd/internal/handler"
	"github.com/inkos/inkd/internal/httputil"
	"github.com/inkos/inkd/internal/svc"
)

// GetMessagesHandler returns a conversation's messages oldest-first; with a
// limit, the most recent N still in chronological order
func GetMessagesHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := httputil.PathVar(r, "id")
		limit := httputil.QueryInt(r, "limit", 0)

		messages, err := svcCtx.Chat.Messages(r.Context(), id, limit)
		if err != nil {
			handler.Error(w, err)
			return
		}

		httputil.OkJSON(w, map[string]any{"messages": messages})
	}
}
