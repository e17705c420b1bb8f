package notes

import (
	"net/http"

	"github.com/inkos/inkd/internal/handler"
	"github.com/inkos/inkd/internal/httputil"
	"github.com/inkos/inkd/internal/svc"
)

// GetNoteHandler returns one note by id
func GetNoteHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := httputil.PathVar(r, "id")

		note, err := svcCtx.DB.GetNote(r.Context(), id)
		if err != nil {
			handler.Error(w, err)
			return
		}

		httputil.OkJSON(w, note)
	}
}
