package ai

import (
	"net/http"

	"github.com/inkos/inkd/internal/chat"
	"github.com/inkos/inkd/internal/handler"
	"github.com/inkos/inkd/internal/httputil"
	"github.com/inkos/inkd/internal/summary"
	"github.com/inkos/inkd/internal/svc"
	"github.com/inkos/inkd/internal/types"
)

// GetSettingsHandler returns the mutable AI settings
func GetSettingsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		active, err := svcCtx.Registry.Active(ctx)
		if err != nil {
			handler.Error(w, err)
			return
		}
		cfg, err := chat.LoadConfig(ctx, svcCtx.DB)
		if err != nil {
			handler.Error(w, err)
			return
		}
		summarizerModel, err := svcCtx.DB.GetSetting(ctx, summary.SettingSummarizerModel)
		if err != nil {
			handler.Error(w, err)
			return
		}

		httputil.OkJSON(w, &types.SettingsResponse{
			Active:          types.ActiveRuntime{ProviderID: active.ProviderID, Model: active.Model},
			WarnRatio:       cfg.WarnRatio,
			ForceRatio:      cfg.ForceRatio,
			SummarizerModel: summarizerModel,
		})
	}
}
