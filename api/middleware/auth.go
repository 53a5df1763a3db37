package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/carbidz-backend/api/responses"
	pkgAuth "github.com/angelmondragon/carbidz-backend/pkg/auth"
	"github.com/angelmondragon/carbidz-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/carbidz-backend/pkg/errors"
	"github.com/angelmondragon/carbidz-backend/pkg/logger"
)

// Auth verifies the bearer token and puts the caller identity on the context.
// Auction ownership and bidder checks compare against that identity.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			identity := claims.Identity()
			ctx := WithIdentity(r.Context(), identity)
			if logg != nil {
				ctx = logg.WithUserID(ctx, identity)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken accepts "Bearer <token>" in any case, or a bare token.
func bearerToken(r *http.Request) (string, bool) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	switch {
	case len(parts) == 2 && strings.EqualFold(parts[0], "bearer"):
		return parts[1], true
	case len(parts) == 1 && !strings.EqualFold(parts[0], "bearer"):
		return parts[0], true
	}
	return "", false
}
