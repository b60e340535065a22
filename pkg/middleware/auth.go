package middleware

import (
	"net/http"

	"github.com/teamplane/teamplane/pkg/auth"
	"github.com/teamplane/teamplane/pkg/contextkeys"
)

// AuthMiddleware authenticates requests from the access-token cookie.
//
// The two failure modes are signalled distinctly: a missing credential is
// 401 (unauthenticated, log in), an unverifiable or expired one is 403
// (refresh or re-login). A request is never silently downgraded to
// anonymous.
type AuthMiddleware struct {
	provider *auth.TokenProvider
}

// NewAuthMiddleware creates an authentication middleware over the token
// provider.
func NewAuthMiddleware(provider *auth.TokenProvider) *AuthMiddleware {
	return &AuthMiddleware{provider: provider}
}

// Handler wraps next with access-credential verification and stores the
// parsed claims on the request context.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(auth.AccessCookieName)
		if err != nil || cookie.Value == "" {
			unauthenticatedResponse(w)
			return
		}

		claims, err := m.provider.ParseAccess(cookie.Value)
		if err != nil {
			invalidCredentialResponse(w)
			return
		}

		ctx := contextkeys.WithSession(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSession extracts the caller's access claims from the request, or nil
// when the request is unauthenticated.
func GetSession(r *http.Request) *auth.AccessClaims {
	claims, ok := contextkeys.Session(r.Context()).(*auth.AccessClaims)
	if !ok {
		return nil
	}
	return claims
}

func unauthenticatedResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"authentication required"}`))
}

func invalidCredentialResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(`{"error":"invalid or expired credential"}`))
}
