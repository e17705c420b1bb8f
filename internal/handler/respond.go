package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/inkos/inkd/internal/chat"
	"github.com/inkos/inkd/internal/httputil"
	"github.com/inkos/inkd/internal/jobs"
	"github.com/inkos/inkd/internal/provider"
)

// Error maps domain sentinels to HTTP statuses; everything unclassified is a 500
func Error(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrConversationNotFound),
		errors.Is(err, provider.ErrProviderNotFound),
		errors.Is(err, sql.ErrNoRows):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, chat.ErrConversationClosed),
		errors.Is(err, provider.ErrProviderNotConfigured):
		httputil.Conflict(w, err.Error())
	case errors.Is(err, chat.ErrMessageTooLarge):
		httputil.ErrorWithCode(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, chat.ErrInvalidRole),
		errors.Is(err, chat.ErrEmptyBody),
		errors.Is(err, jobs.ErrUnknownKind):
		httputil.Error(w, err)
	case errors.Is(err, provider.ErrNoRuntime):
		httputil.BadGateway(w, err.Error())
	default:
		httputil.InternalError(w, err.Error())
	}
}
