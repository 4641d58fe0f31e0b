package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	pkgauth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Failure endpoints the credential handlers redirect to.
const (
	PathAuthFailureRegister = "/api/sessions/authFailureRegister"
	PathAuthFailureLogin    = "/api/sessions/authFailureLogin"
	PathAuthFailureReset    = "/api/sessions/authFailureReset"
	PathGitHubFailure       = "/api/sessions/githubFailure"
	PathAfterOAuth          = "/products"
)

const defaultAuthFailure = "authentication failed"

// SessionStore binds session ids to identities and carries flash messages.
type SessionStore interface {
	Create(ctx context.Context, identity string) (string, error)
	Destroy(ctx context.Context, sid string) error
	AddFlash(ctx context.Context, sid, kind, msg string) error
	PopFlash(ctx context.Context, sid, kind string) (string, error)
}

// SessionDeps groups what the session endpoints share.
type SessionDeps struct {
	Auth     auth.Service
	Sessions SessionStore
	Cookies  session.Cookies
	Logger   *logger.Logger
}

type sessionUser struct {
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	BirthDate *time.Time `json:"birthDate,omitempty"`
	UserRole  string     `json:"userRole"`
}

func newSessionUser(p *auth.Principal) sessionUser {
	return sessionUser{
		Name:      p.FullName(),
		Email:     p.Email,
		BirthDate: p.BirthDate,
		UserRole:  p.Role,
	}
}

// SessionsRegister creates a local account and signs it in.
func SessionsRegister(deps SessionDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if deps.Auth == nil || deps.Sessions == nil {
			responses.WriteError(ctx, deps.Logger, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var req auth.RegisterRequest
		if err := validators.DecodeBody(r, &req); err != nil {
			failAuth(w, r, deps, PathAuthFailureRegister, err)
			return
		}

		principal, err := deps.Auth.Register(ctx, req)
		if err != nil {
			failAuth(w, r, deps, PathAuthFailureRegister, err)
			return
		}

		if err := startSession(ctx, w, deps, principal); err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}

		responses.WriteMessage(w, http.StatusOK, "user registered", nil)
	}
}

// SessionsLogin authenticates with email and password.
func SessionsLogin(deps SessionDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if deps.Auth == nil || deps.Sessions == nil {
			responses.WriteError(ctx, deps.Logger, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var req auth.LoginRequest
		if err := validators.DecodeBody(r, &req); err != nil {
			failAuth(w, r, deps, PathAuthFailureLogin, err)
			return
		}

		principal, err := deps.Auth.Login(ctx, req)
		if err != nil {
			failAuth(w, r, deps, PathAuthFailureLogin, err)
			return
		}

		if err := startSession(ctx, w, deps, principal); err != nil {
			responses.WriteError(ctx, deps.Logger, w, err)
			return
		}

		responses.WriteMessage(w, http.StatusOK, "user logged in", map[string]any{"user": newSessionUser(principal)})
	}
}

// SessionsResetPassword overwrites the password of an existing account.
func SessionsResetPassword(deps SessionDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if deps.Auth == nil || deps.Sessions == nil {
			responses.WriteError(ctx, deps.Logger, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var req auth.ResetPasswordRequest
		if err := validators.DecodeBody(r, &req); err != nil {
			failAuth(w, r, deps, PathAuthFailureReset, err)
			return
		}

		if err := deps.Auth.ResetPassword(ctx, req); err != nil {
			failAuth(w, r, deps, PathAuthFailureReset, err)
			return
		}

		responses.WriteMessage(w, http.StatusOK, "password reset, continue to login", nil)
	}
}

// SessionsLogout drops the session binding and clears the cookie.
func SessionsLogout(deps SessionDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if sid := middleware.SessionIDFromContext(ctx); sid != "" && deps.Sessions != nil {
			if err := deps.Sessions.Destroy(ctx, sid); err != nil {
				responses.WriteError(ctx, deps.Logger, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "destroy session"))
				return
			}
		}
		deps.Cookies.Clear(w)
		responses.WriteMessage(w, http.StatusOK, "user logged out", nil)
	}
}

// SessionsAuthFailure reports the pending failure reason once.
func SessionsAuthFailure(deps SessionDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		msg := ""
		if deps.Sessions != nil {
			popped, err := deps.Sessions.PopFlash(ctx, middleware.SessionIDFromContext(ctx), session.FlashError)
			if err != nil && deps.Logger != nil {
				deps.Logger.Error(ctx, "session.flash_pop_failed", err)
			}
			msg = popped
		}
		if msg == "" {
			msg = defaultAuthFailure
		}
		responses.WriteErrorStatus(ctx, deps.Logger, w, pkgerrors.New(pkgerrors.CodeUnauthorized, msg), http.StatusBadRequest)
	}
}

// SessionsCurrent returns the signed-in principal.
func SessionsCurrent(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := middleware.PrincipalFromContext(r.Context())
		if principal == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "not logged in"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"user": newSessionUser(principal)})
	}
}

// SessionsGitHub starts the OAuth round trip with a state token bound to the
// browser session.
func SessionsGitHub(provider auth.OAuthProvider, jwtCfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if provider == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "github login is not configured"))
			return
		}

		state, err := pkgauth.MintState(jwtCfg, time.Now(), middleware.SessionIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint oauth state"))
			return
		}
		http.Redirect(w, r, provider.AuthCodeURL(state), http.StatusFound)
	}
}

// SessionsGitHubCallback finishes the OAuth round trip and signs the account in.
func SessionsGitHubCallback(deps SessionDeps, provider auth.OAuthProvider, jwtCfg config.JWTConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if provider == nil || deps.Auth == nil || deps.Sessions == nil {
			http.Redirect(w, r, PathGitHubFailure, http.StatusFound)
			return
		}

		q := r.URL.Query()
		if _, err := pkgauth.VerifyState(jwtCfg, q.Get("state"), middleware.SessionIDFromContext(ctx)); err != nil {
			githubFailed(w, r, deps.Logger, "oauth.state_rejected", err)
			return
		}
		code := q.Get("code")
		if code == "" {
			githubFailed(w, r, deps.Logger, "oauth.code_missing", pkgerrors.New(pkgerrors.CodeValidation, "missing code"))
			return
		}

		profile, err := provider.Profile(ctx, code)
		if err != nil {
			githubFailed(w, r, deps.Logger, "oauth.profile_failed", err)
			return
		}

		principal, err := deps.Auth.OAuthLogin(ctx, profile)
		if err != nil {
			githubFailed(w, r, deps.Logger, "oauth.login_failed", err)
			return
		}

		if err := startSession(ctx, w, deps, principal); err != nil {
			githubFailed(w, r, deps.Logger, "oauth.session_failed", err)
			return
		}
		http.Redirect(w, r, PathAfterOAuth, http.StatusFound)
	}
}

// SessionsGitHubFailure is where failed OAuth round trips land.
func SessionsGitHubFailure(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteErrorStatus(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "github authentication failed"), http.StatusBadRequest)
	}
}

// startSession mints a fresh session id for the principal and drops the
// previous binding.
func startSession(ctx context.Context, w http.ResponseWriter, deps SessionDeps, principal *auth.Principal) error {
	sid, err := deps.Sessions.Create(ctx, principal.Identity())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create session")
	}
	if previous := middleware.SessionIDFromContext(ctx); previous != "" {
		if err := deps.Sessions.Destroy(ctx, previous); err != nil && deps.Logger != nil {
			deps.Logger.Warn(deps.Logger.WithField(ctx, "error", err.Error()), "session.previous_destroy_failed")
		}
	}
	deps.Cookies.Write(w, sid)
	if deps.Logger != nil {
		ctx = deps.Logger.WithUserID(ctx, principal.Identity())
		deps.Logger.Info(ctx, "session.started")
	}
	return nil
}

// failAuth records the strategy failure as flash state and redirects to the
// matching failure endpoint. Infrastructure failures are answered directly.
func failAuth(w http.ResponseWriter, r *http.Request, deps SessionDeps, failurePath string, err error) {
	ctx := r.Context()
	typed := pkgerrors.As(err)
	if typed == nil {
		responses.WriteError(ctx, deps.Logger, w, err)
		return
	}
	switch typed.Code() {
	case pkgerrors.CodeValidation, pkgerrors.CodeUnauthorized, pkgerrors.CodeConflict, pkgerrors.CodeNotFound:
	default:
		responses.WriteError(ctx, deps.Logger, w, err)
		return
	}

	sid := middleware.SessionIDFromContext(ctx)
	if sid == "" {
		responses.WriteErrorStatus(ctx, deps.Logger, w, err, http.StatusBadRequest)
		return
	}
	if flashErr := deps.Sessions.AddFlash(ctx, sid, session.FlashError, typed.Message()); flashErr != nil {
		if deps.Logger != nil {
			deps.Logger.Error(ctx, "session.flash_failed", flashErr)
		}
		responses.WriteErrorStatus(ctx, deps.Logger, w, err, http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, failurePath, http.StatusSeeOther)
}

func githubFailed(w http.ResponseWriter, r *http.Request, logg *logger.Logger, event string, err error) {
	if logg != nil {
		logg.Warn(logg.WithField(r.Context(), "error", err.Error()), event)
	}
	http.Redirect(w, r, PathGitHubFailure, http.StatusFound)
}
