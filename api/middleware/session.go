package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type sessionLoader interface {
	Load(ctx context.Context, sid string) (string, error)
	Destroy(ctx context.Context, sid string) error
}

type principalResolver interface {
	Resolve(ctx context.Context, identity string) (*auth.Principal, error)
}

// Session makes sure every browser carries a session id cookie and attaches
// the resolved principal when the id is bound to an identity.
func Session(sessions sessionLoader, resolver principalResolver, cookies session.Cookies, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			sid := cookies.Read(r)
			if sid == "" {
				fresh, err := session.NewID()
				if err != nil {
					if logg != nil {
						logg.Error(ctx, "session.id_failed", err)
					}
					next.ServeHTTP(w, r)
					return
				}
				sid = fresh
				cookies.Write(w, sid)
			}
			ctx = WithSessionID(ctx, sid)

			identity, err := sessions.Load(ctx, sid)
			switch {
			case err == nil:
				principal, resolveErr := resolver.Resolve(ctx, identity)
				switch {
				case resolveErr == nil:
					ctx = WithPrincipal(ctx, principal)
					if logg != nil {
						ctx = logg.WithUserID(ctx, principal.Identity())
						ctx = logg.WithActorRole(ctx, principal.Role)
					}
				case errors.Is(resolveErr, auth.ErrUnknownIdentity):
					_ = sessions.Destroy(ctx, sid)
				default:
					if logg != nil {
						logg.Error(ctx, "session.resolve_failed", resolveErr)
					}
				}
			case errors.Is(err, session.ErrNoSession):
			default:
				if logg != nil {
					logg.Error(ctx, "session.load_failed", err)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePrincipal redirects anonymous browsers to loginPath.
func RequirePrincipal(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if PrincipalFromContext(r.Context()) == nil {
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PublicOnly redirects signed-in browsers to homePath.
func PublicOnly(homePath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if PrincipalFromContext(r.Context()) != nil {
				http.Redirect(w, r, homePath, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
