package notes

import (
	"net/http"
	"strings"

	"github.com/inkos/inkd/internal/handler"
	"github.com/inkos/inkd/internal/httputil"
	"github.com/inkos/inkd/internal/svc"
	"github.com/inkos/inkd/internal/types"
)

// CreateNoteHandler adds a workspace note
func CreateNoteHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CreateNoteRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}
		if strings.TrimSpace(req.Title) == "" && strings.TrimSpace(req.Body) == "" {
			httputil.ErrorWithCode(w, http.StatusBadRequest, "note needs a title or a body")
			return
		}

		note, err := svcCtx.DB.CreateNote(r.Context(), req.Title, req.Body)
		if err != nil {
			handler.Error(w, err)
			return
		}

		httputil.WriteJSON(w, http.StatusCreated, note)
	}
}
