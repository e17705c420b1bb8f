package chat

import (
	"net/http"

	"github.com/inkos/inkd/internal/handler"
	"github.com/inkos/inkd/internal/httputil"
	"github.com/inkos/inkd/internal/svc"
)

// GetConversationHandler returns one conversation with its lifecycle flags
func GetConversationHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := httputil.PathVar(r, "id")

		conv, err := svcCtx.Chat.Get(r.Context(), id)
		if err != nil {
			handler.Error(w, err)
			return
		}

		httputil.OkJSON(w, conv)
	}
}
