package middleware

import (
	"net/http"
	"strings"

	"github.com/shashiranjanraj/zepto/pkg/auth"
	"github.com/shashiranjanraj/zepto/pkg/logger"
	"github.com/shashiranjanraj/zepto/pkg/response"
)

// Authenticate requires a valid Bearer token. The token's user becomes the
// request's auth.Actor and is added to the request logger as user_id.
func Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			response.Unauthorized(w, "Not authorized, no token")
			return
		}

		claims, err := auth.ValidateToken(strings.TrimSpace(token))
		if err != nil || claims.UserID == "" {
			logger.WithCtx(r.Context()).Debug("token rejected", "error", err)
			response.Unauthorized(w, "Not authorized, token failed")
			return
		}

		ctx := auth.WithActor(r.Context(), auth.Actor{UserID: claims.UserID, IsAdmin: claims.IsAdmin})
		ctx = logger.InjectLogger(ctx, logger.WithCtx(ctx).With("user_id", claims.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin admits only admin actors. It must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := auth.ActorFrom(r.Context())
		if err != nil {
			response.Unauthorized(w, "Not authorized, no token")
			return
		}
		if !actor.IsAdmin {
			response.Forbidden(w, "Not authorized as admin")
			return
		}
		next.ServeHTTP(w, r)
	})
}
