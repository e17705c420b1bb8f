package ai

import (
	"net/http"

	"github.com/inkos/inkd/internal/chat"
	"github.com/inkos/inkd/internal/eventlog"
	"github.com/inkos/inkd/internal/handler"
	"github.com/inkos/inkd/internal/httputil"
	"github.com/inkos/inkd/internal/logging"
	"github.com/inkos/inkd/internal/summary"
	"github.com/inkos/inkd/internal/svc"
	"github.com/inkos/inkd/internal/types"
)

// UpdateSettingsHandler applies a partial update to the AI settings:
// active runtime, rollover ratios, summarizer model, provider endpoints and
// credentials. Responds with the resulting settings view.
func UpdateSettingsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req types.UpdateSettingsRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		if req.Active != nil {
			if _, err := svcCtx.Registry.SetActive(ctx, req.Active.ProviderID, req.Active.Model); err != nil {
				handler.Error(w, err)
				return
			}
		}

		if req.WarnRatio != nil || req.ForceRatio != nil {
			cfg, err := chat.LoadConfig(ctx, svcCtx.DB)
			if err != nil {
				handler.Error(w, err)
				return
			}
			if req.WarnRatio != nil {
				cfg.WarnRatio = *req.WarnRatio
			}
			if req.ForceRatio != nil {
				cfg.ForceRatio = *req.ForceRatio
			}
			if cfg.WarnRatio <= 0 || cfg.ForceRatio > 1 || cfg.WarnRatio >= cfg.ForceRatio {
				httputil.ErrorWithCode(w, http.StatusBadRequest, "warn_ratio must be below force_ratio, both in (0, 1]")
				return
			}
			if err := chat.SaveConfig(ctx, svcCtx.DB, cfg); err != nil {
				handler.Error(w, err)
				return
			}
		}

		if req.SummarizerModel != nil {
			if err := svcCtx.DB.SetSetting(ctx, summary.SettingSummarizerModel, *req.SummarizerModel); err != nil {
				handler.Error(w, err)
				return
			}
		}

		for _, p := range req.Providers {
			if p.BaseURL != nil {
				if err := svcCtx.Registry.SetBaseURL(ctx, p.ID, *p.BaseURL); err != nil {
					handler.Error(w, err)
					return
				}
			}
			if p.APIKey != nil {
				if err := svcCtx.Registry.SetCredential(ctx, p.ID, *p.APIKey); err != nil {
					logging.Errorf("credential update for %s failed: %v", p.ID, err)
					handler.Error(w, err)
					return
				}
			}
		}

		svcCtx.Events.Info(ctx, eventlog.CodeSettings, eventlog.ModuleAIRuntime, "ai settings updated", "", nil)

		GetSettingsHandler(svcCtx)(w, r)
	}
}
