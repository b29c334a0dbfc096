package auth

import (
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	// CookieName is the browser session cookie.
	CookieName = "social_session"

	cookieTokenKey = "token"
	cookieStateKey = "oauth_state"
)

// MinCookieSecretLength is the shortest secret accepted for signing cookies.
const MinCookieSecretLength = 32

// NewCookieStore returns the signed cookie store holding browser sessions.
func NewCookieStore(secret string, secure bool, maxAge int) (*sessions.CookieStore, error) {
	if len(secret) < MinCookieSecretLength {
		return nil, fmt.Errorf("cookie secret must be at least %d bytes", MinCookieSecretLength)
	}
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store, nil
}

// CookieToken returns the token held in the browser session, or "".
func CookieToken(store sessions.Store, r *http.Request) string {
	sess, err := store.Get(r, CookieName)
	if err != nil {
		return ""
	}
	token, _ := sess.Values[cookieTokenKey].(string)
	return token
}

func SaveCookieToken(store sessions.Store, w http.ResponseWriter, r *http.Request, token string) error {
	sess, _ := store.Get(r, CookieName)
	sess.Values[cookieTokenKey] = token
	delete(sess.Values, cookieStateKey)
	return sess.Save(r, w)
}

func ClearCookie(store sessions.Store, w http.ResponseWriter, r *http.Request) error {
	sess, _ := store.Get(r, CookieName)
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// SaveState remembers the OAuth state until the callback.
func SaveState(store sessions.Store, w http.ResponseWriter, r *http.Request, state string) error {
	sess, _ := store.Get(r, CookieName)
	sess.Values[cookieStateKey] = state
	return sess.Save(r, w)
}

// CheckState compares the callback state with the one saved by SaveState.
func CheckState(store sessions.Store, r *http.Request, state string) error {
	sess, err := store.Get(r, CookieName)
	if err != nil {
		return ErrInvalidState
	}
	saved, _ := sess.Values[cookieStateKey].(string)
	if saved == "" || saved != state {
		return ErrInvalidState
	}
	return nil
}
