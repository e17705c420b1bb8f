package ai

import (
	"net/http"

	"github.com/inkos/inkd/internal/handler"
	"github.com/inkos/inkd/internal/httputil"
	"github.com/inkos/inkd/internal/svc"
)

// ListProvidersHandler returns the provider registry with credential flags.
// Secrets themselves never leave the vault.
func ListProvidersHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providers, err := svcCtx.Registry.List(r.Context())
		if err != nil {
			handler.Error(w, err)
			return
		}

		httputil.OkJSON(w, map[string]any{"providers": providers})
	}
}
