package ai

import (
	"fmt"
	"net/http"

	"github.com/inkos/inkd/internal/handler"
	"github.com/inkos/inkd/internal/httputil"
	"github.com/inkos/inkd/internal/svc"
	"github.com/inkos/inkd/internal/types"
)

// SummarizeHandler produces (or reuses) a summary for a conversation or note.
// Identical source content always returns the cached summary.
func SummarizeHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req types.SummarizeRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		switch req.TargetType {
		case "conversation":
			conv, err := svcCtx.DB.GetConversation(ctx, req.TargetID)
			if err != nil {
				handler.Error(w, err)
				return
			}
			sum, reused, err := svcCtx.Summarizer.SummarizeConversation(ctx, conv, "", false)
			if err != nil {
				handler.Error(w, err)
				return
			}
			httputil.OkJSON(w, map[string]any{"summary": sum, "reused": reused})
		case "note":
			note, err := svcCtx.DB.GetNote(ctx, req.TargetID)
			if err != nil {
				handler.Error(w, err)
				return
			}
			sum, reused, err := svcCtx.Summarizer.Summarize(ctx, "note", note.ID, []string{note.Title, note.Body}, false)
			if err != nil {
				handler.Error(w, err)
				return
			}
			httputil.OkJSON(w, map[string]any{"summary": sum, "reused": reused})
		default:
			httputil.Error(w, fmt.Errorf("unknown target_type %q", req.TargetType))
		}
	}
}
