package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/datascout/datascout/internal/domain"
)

type authContextKey string

const contextKeyUser authContextKey = "datascout-current-user"

type contextSetter interface {
	SetContext(context.Context)
}

// requireAuth ensures the request carries a valid bearer token before
// invoking the handler. Every failure mode produces the identical 401
// with a bearer challenge so callers cannot distinguish them.
func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx, _, ok := r.ensureAuth(w, req)
		if !ok {
			return
		}
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next(w, req.WithContext(ctx))
	}
}

// ensureAuth validates the Authorization header and enriches the context.
func (r *Router) ensureAuth(w http.ResponseWriter, req *http.Request) (context.Context, *domain.User, bool) {
	token, err := bearerToken(req.Header.Get("Authorization"))
	if err != nil {
		r.logger.Warn("authorization header invalid", "error", err, "path", req.URL.Path)
		writeUnauthorized(w, "Could not validate credentials")
		return req.Context(), nil, false
	}
	user, err := r.auth.Authorize(req.Context(), token)
	if err != nil {
		r.logger.Warn("token validation failed", "error", err, "path", req.URL.Path)
		writeUnauthorized(w, "Could not validate credentials")
		return req.Context(), nil, false
	}
	ctx := context.WithValue(req.Context(), contextKeyUser, user)
	return ctx, user, true
}

// currentUser extracts the authenticated user from context.
func currentUser(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(contextKeyUser).(*domain.User)
	return user, ok
}

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}
