package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"JamFM/cache"
	"JamFM/config"
	"JamFM/core/auth"
	"JamFM/core/music"
	"JamFM/core/resolver"
	"JamFM/logger"
	"JamFM/repository"
	"JamFM/storage"
)

type contextKey string

const profileIDKey contextKey = "profileID"

// APIHandler 处理所有API请求
type APIHandler struct {
	sessions     *music.SessionService
	catalog      *resolver.Catalog
	profileRepo  repository.ProfileRepository
	tokens       *auth.TokenManager
	sessionCache *cache.SessionCache
	audioStore   *storage.AudioStore
	cfg          *config.Config
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(
	sessions *music.SessionService,
	catalog *resolver.Catalog,
	profileRepo repository.ProfileRepository,
	tokens *auth.TokenManager,
	sessionCache *cache.SessionCache,
	audioStore *storage.AudioStore,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		sessions:     sessions,
		catalog:      catalog,
		profileRepo:  profileRepo,
		tokens:       tokens,
		sessionCache: sessionCache,
		audioStore:   audioStore,
		cfg:          cfg,
	}
}

// respondJSON writes a JSON payload.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Error("failed to encode response", logger.ErrorField(err))
		}
	}
}

// respondError maps domain errors onto HTTP status codes. Unknown errors
// become a generic 500 so internals never leak to clients.
func respondError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, music.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, music.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, music.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, music.ErrInvalidArgument), errors.Is(err, music.ErrInvalidAction):
		status = http.StatusBadRequest
	case errors.Is(err, music.ErrUnsupportedSource), errors.Is(err, music.ErrResolutionFailed):
		status = http.StatusUnprocessableEntity
	default:
		logger.Error("request failed", logger.ErrorField(err))
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

// AuthMiddleware is a middleware function that checks for a valid JWT token
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondError(w, fmt.Errorf("%w: authorization header is required", music.ErrUnauthorized))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			respondError(w, fmt.Errorf("%w: invalid authorization header format", music.ErrUnauthorized))
			return
		}

		claims, err := h.tokens.ValidateToken(parts[1])
		if err != nil {
			respondError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), profileIDKey, claims.ProfileID)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// GetProfileIDFromContext extracts the profile ID from the request context
func GetProfileIDFromContext(ctx context.Context) (string, error) {
	profileID, ok := ctx.Value(profileIDKey).(string)
	if !ok || profileID == "" {
		return "", fmt.Errorf("%w: profile ID not found in context", music.ErrUnauthorized)
	}
	return profileID, nil
}
