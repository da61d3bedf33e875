package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/drinkless/internal/model"
	"github.com/and161185/drinkless/internal/repository/memory"
	"github.com/and161185/drinkless/internal/service"
)

func newTestAPI(t *testing.T) (http.Handler, string) {
	t.Helper()
	profiles := memory.NewProfiles()
	auth := service.NewAuthService(memory.NewUsers(), profiles, []byte("k"), time.Hour)
	ctx := context.Background()
	_, err := auth.Register(ctx, "ann", "pw")
	require.NoError(t, err)
	tok, _, err := auth.Login(ctx, "ann", "pw")
	require.NoError(t, err)
	h := New(auth, service.NewProfileService(profiles), zaptest.NewLogger(t))
	return h.Router([]string{"https://app.example"}), tok.AccessToken
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	t.Parallel()
	h, _ := newTestAPI(t)
	rec := do(t, h, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())
}

func TestProfile_RequiresAuth(t *testing.T) {
	t.Parallel()
	h, _ := newTestAPI(t)
	require.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/profile", "", "").Code)
	require.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/profile", "garbage", "").Code)
}

func TestProfile_PatchGetDelete(t *testing.T) {
	t.Parallel()
	h, tok := newTestAPI(t)

	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/profile", tok, "").Code)

	rec := do(t, h, http.MethodPatch, "/api/profile", tok, `{"coins":75,"current_streak":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var p model.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.Equal(t, 75, p.Coins)
	require.Equal(t, 2, p.LongestStreak)
	require.Equal(t, int64(1), p.Ver)

	rec = do(t, h, http.MethodPatch, "/api/profile", tok, `{"coins":1,"base_ver":0}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPatch, "/api/profile", tok, `{"coins":-3}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPatch, "/api/profile", tok, `{"gems":3}`)
	require.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields rejected")

	rec = do(t, h, http.MethodGet, "/api/profile", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.Equal(t, 75, p.Coins)

	require.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/account", tok, "").Code)
	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/profile", tok, "").Code)
}

func TestCORS_Preflight(t *testing.T) {
	t.Parallel()
	h, _ := newTestAPI(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/profile", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
