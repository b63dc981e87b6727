package httpx

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront.git/internal/model"
	"github.com/ariefcatur/go-storefront.git/internal/session"
)

type ctxKey struct{}

type current struct {
	user  model.User
	token string
}

func currentUser(ctx context.Context) (*model.User, string) {
	c, ok := ctx.Value(ctxKey{}).(*current)
	if !ok {
		return nil, ""
	}
	return &c.user, c.token
}

// loadSession resolves the cookie. A corrupt record forces a logout: it is
// deleted, the cookie cleared and the request refused.
func (h *Handlers) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(session.CookieName)
		if err != nil || c.Value == "" {
			next.ServeHTTP(w, r)
			return
		}
		u, err := h.Sessions.Get(r.Context(), c.Value)
		switch {
		case err == nil:
			ctx := context.WithValue(r.Context(), ctxKey{}, &current{user: u, token: c.Value})
			next.ServeHTTP(w, r.WithContext(ctx))
		case errors.Is(err, session.ErrNoSession):
			h.clearCookie(w)
			next.ServeHTTP(w, r)
		case errors.Is(err, session.ErrCorrupt):
			h.log().Warn("dropping corrupt session", zap.Error(err))
			if derr := h.Sessions.Delete(r.Context(), c.Value); derr != nil {
				h.log().Warn("delete corrupt session failed", zap.Error(derr))
			}
			h.clearCookie(w)
			fail(w, h.log(), err)
		default:
			fail(w, h.log(), err)
		}
	})
}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, _ := currentUser(r.Context()); u == nil {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "Debes iniciar sesión para continuar.", loginRedirect)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) setCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.Sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
