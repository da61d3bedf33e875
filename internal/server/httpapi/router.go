// Package httpapi exposes the remote profile store over REST for clients
// that cannot speak gRPC.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/drinkless/internal/errs"
	"github.com/and161185/drinkless/internal/model"
	"github.com/and161185/drinkless/internal/service"
)

type ctxKey struct{}

// Handler serves the REST API.
type Handler struct {
	auth     service.AuthService
	profiles service.ProfileService
	log      *zap.Logger
}

// New constructs the REST handler set.
func New(auth service.AuthService, profiles service.ProfileService, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{auth: auth, profiles: profiles, log: log}
}

// Router builds the chi router. allowedOrigins feeds the CORS policy;
// an empty list allows none.
func (h *Handler) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/profile", h.getProfile)
		r.Patch("/profile", h.patchProfile)
		r.Delete("/account", h.deleteAccount)
	})
	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.log.Info("http",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("dur", time.Since(start)),
			zap.String("req_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := strings.TrimSpace(r.Header.Get("Authorization"))
		if len(authz) < 7 || !strings.EqualFold(authz[:7], "bearer ") {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		id, err := h.auth.VerifyToken(strings.TrimSpace(authz[7:]))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func userID(r *http.Request) uuid.UUID {
	id, _ := r.Context().Value(ctxKey{}).(uuid.UUID)
	return id
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.Get(r.Context(), userID(r))
	if err != nil {
		h.fail(w, "get profile", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) patchProfile(w http.ResponseWriter, r *http.Request) {
	var patch model.ProfilePatch
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "bad patch: "+err.Error())
		return
	}
	p, err := h.profiles.Upsert(r.Context(), userID(r), patch)
	if err != nil {
		h.fail(w, "patch profile", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.DeleteAccount(r.Context(), userID(r)); err != nil {
		h.fail(w, "delete account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail maps domain sentinels to HTTP statuses.
func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, errs.ErrVersionConflict):
		writeError(w, http.StatusConflict, "version conflict")
	case errors.Is(err, errs.ErrValidation), errors.Is(err, errs.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error(op, zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
