// file: handler/cookies.go

package handler

import (
	"go-school-api/config"
	"go-school-api/model"
	"net/http"
	"time"
)

const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
)

func baseCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Path:     "/",
		HttpOnly: true,                  // Not accessible via JavaScript
		Secure:   config.IsProduction(), // HTTPS only in production
		SameSite: http.SameSiteLaxMode,  // CSRF protection
	}
}

// setSessionCookies writes both credentials. The access cookie expires with
// the token itself, the refresh cookie with the 7-day refresh window.
func setSessionCookies(w http.ResponseWriter, pair *model.TokenPair) {
	access := baseCookie(AccessCookieName)
	access.Value = pair.AccessToken
	access.Expires = pair.AccessExpiresAt
	access.MaxAge = int(time.Until(pair.AccessExpiresAt).Seconds())
	http.SetCookie(w, access)

	refresh := baseCookie(RefreshCookieName)
	refresh.Value = pair.RefreshToken
	refresh.Expires = pair.RefreshExpiresAt
	refresh.MaxAge = int(time.Until(pair.RefreshExpiresAt).Seconds())
	http.SetCookie(w, refresh)
}

func clearCookie(w http.ResponseWriter, name string) {
	c := baseCookie(name)
	c.Value = ""
	c.MaxAge = -1
	http.SetCookie(w, c)
}

func clearSessionCookies(w http.ResponseWriter) {
	clearCookie(w, AccessCookieName)
	clearCookie(w, RefreshCookieName)
}
