package auth

import (
	"net/http"
	"time"
)

// Cookie names for the two credentials.
const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
)

// SetAccessCookie writes the access credential as an HTTP-only, secure,
// strict-same-site cookie.
func SetAccessCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, sessionCookie(AccessCookieName, token, ttl))
}

// SetRefreshCookie writes the refresh credential cookie.
func SetRefreshCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, sessionCookie(RefreshCookieName, token, ttl))
}

// ClearSessionCookies expires both credential cookies; logout is purely
// client-side, there is no server-side revocation list.
func ClearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, sessionCookie(AccessCookieName, "", -time.Second))
	http.SetCookie(w, sessionCookie(RefreshCookieName, "", -time.Second))
}

func sessionCookie(name, value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
	if ttl > 0 {
		c.MaxAge = int(ttl.Seconds())
	} else {
		c.MaxAge = -1
	}
	return c
}
