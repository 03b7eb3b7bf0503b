package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gamaccess/gamaccess/internal/auth"
	"github.com/gamaccess/gamaccess/internal/cache"
	"github.com/gamaccess/gamaccess/internal/model"
	"github.com/gamaccess/gamaccess/internal/repository"
)

// minAuthDuration pads fast failures so response timing does not leak
// whether a key prefix exists.
const minAuthDuration = 200 * time.Millisecond

// AuthConfig holds dependencies for the auth middleware.
type AuthConfig struct {
	Logger     *slog.Logger
	Repository *repository.Repository
	Cache      *cache.Cache
}

// Auth authenticates requests by API key. The key comes from the
// Authorization bearer header or X-API-Key, is verified against the
// stored argon2id hash, and the resulting auth context is attached to
// the request. Verified keys are cached briefly in Redis.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()

			defer func() {
				elapsed := time.Since(startTime)
				if elapsed < minAuthDuration {
					time.Sleep(minAuthDuration - elapsed)
				}
			}()

			key := extractAPIKey(r)
			if key == "" {
				logAuthFailure(cfg.Logger, r, "missing_key")
				writeAuthError(w)
				return
			}

			parsed, err := auth.ParseAPIKey(key)
			if err != nil {
				logAuthFailure(cfg.Logger, r, "invalid_format")
				writeAuthError(w)
				return
			}

			cacheKey := auth.QuickHash(key)
			authCtx, _ := cfg.Cache.GetAuthContext(r.Context(), cacheKey)

			if authCtx != nil {
				logAuthSuccess(cfg.Logger, r, authCtx, true)
				ctx := auth.ContextWithAuth(r.Context(), authCtx)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			keys, err := cfg.Repository.GetAPIKeysByPrefix(r.Context(), parsed.Prefix)
			if err != nil {
				cfg.Logger.Error("database error during auth",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			// Verify against every candidate to handle prefix collisions.
			var matchedKey *model.APIKey
			for _, k := range keys {
				match, err := auth.VerifyKey(key, k.KeyHash)
				if err != nil {
					continue
				}
				if match {
					matchedKey = k
					break
				}
			}

			if matchedKey == nil {
				logAuthFailure(cfg.Logger, r, "invalid_key")
				writeAuthError(w)
				return
			}

			authCtx = &model.AuthContext{
				KeyID:         matchedKey.ID,
				KeyPrefix:     matchedKey.KeyPrefix,
				Scopes:        matchedKey.Scopes,
				RateLimitTier: matchedKey.RateLimitTier,
			}

			_ = cfg.Cache.SetAuthContext(r.Context(), cacheKey, authCtx)

			go func() {
				_ = cfg.Repository.UpdateAPIKeyLastUsed(r.Context(), matchedKey.ID)
			}()

			logAuthSuccess(cfg.Logger, r, authCtx, false)

			ctx := auth.ContextWithAuth(r.Context(), authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func logAuthFailure(logger *slog.Logger, r *http.Request, reason string) {
	logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

func logAuthSuccess(logger *slog.Logger, r *http.Request, authCtx *model.AuthContext, cacheHit bool) {
	logger.Info("authentication successful",
		slog.String("key_id", authCtx.KeyID),
		slog.String("key_prefix", authCtx.KeyPrefix),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.Bool("cache_hit", cacheHit),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

// extractAPIKey reads the key from "Authorization: Bearer <key>" or
// the X-API-Key header.
func extractAPIKey(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return r.Header.Get("X-API-Key")
}

// writeAuthError returns 401 with one shared message so callers cannot
// enumerate valid prefixes.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"Invalid or missing API key"}}`))
}
