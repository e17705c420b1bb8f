package httputil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type parseTarget struct {
	ID    string `path:"id" json:"-"`
	Limit int    `form:"limit" json:"-"`
	Role  string `json:"role"`
	Body  string `json:"body"`
}

func requestWithPathVar(method, target, body, key, val string) *http.Request {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, val)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestParse(t *testing.T) {
	r := requestWithPathVar(http.MethodPost, "/conversations/c1/messages?limit=25",
		`{"role":"user","body":"hello"}`, "id", "c1")

	var got parseTarget
	require.NoError(t, Parse(r, &got))
	assert.Equal(t, "c1", got.ID)
	assert.Equal(t, 25, got.Limit)
	assert.Equal(t, "user", got.Role)
	assert.Equal(t, "hello", got.Body)
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	r := requestWithPathVar(http.MethodPost, "/conversations/c1/messages",
		`{"role":`, "id", "c1")

	var got parseTarget
	assert.Error(t, Parse(r, &got))
}

func TestParsePathOnly(t *testing.T) {
	r := requestWithPathVar(http.MethodGet, "/conversations/c9", "", "id", "c9")

	var got parseTarget
	require.NoError(t, Parse(r, &got))
	assert.Equal(t, "c9", got.ID)
	assert.Zero(t, got.Limit)
}

func TestQueryHelpers(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/events?limit=7&module=jobs&bad=x", nil)

	assert.Equal(t, 7, QueryInt(r, "limit", 100))
	assert.Equal(t, 100, QueryInt(r, "missing", 100))
	assert.Equal(t, 100, QueryInt(r, "bad", 100))
	assert.Equal(t, "jobs", QueryString(r, "module", ""))
	assert.Equal(t, "all", QueryString(r, "missing", "all"))
}

func TestErrorResponses(t *testing.T) {
	cases := []struct {
		name  string
		write func(http.ResponseWriter)
		code  int
	}{
		{"not found", func(w http.ResponseWriter) { NotFound(w, "") }, http.StatusNotFound},
		{"conflict", func(w http.ResponseWriter) { Conflict(w, "closed") }, http.StatusConflict},
		{"bad gateway", func(w http.ResponseWriter) { BadGateway(w, "") }, http.StatusBadGateway},
		{"internal", func(w http.ResponseWriter) { InternalError(w, "") }, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tc.write(rec)
			assert.Equal(t, tc.code, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.code, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}
}
