package authority

import (
	"fmt"
	"net/http"

	"github.com/ZSmain/ordo/internal/event"
)

// Authenticator resolves an incoming request to the calling user. The
// authority never manages credentials itself; the surrounding application
// injects whatever session scheme it uses.
type Authenticator interface {
	Authenticate(r *http.Request) (userID string, err error)
}

// CookieAuthenticator reads a session cookie and resolves its value
// through an injected lookup.
type CookieAuthenticator struct {
	CookieName string
	Resolve    func(token string) (userID string, err error)
}

func (a *CookieAuthenticator) Authenticate(r *http.Request) (string, error) {
	c, err := r.Cookie(a.CookieName)
	if err != nil {
		return "", fmt.Errorf("missing session cookie %q", a.CookieName)
	}
	userID, err := a.Resolve(c.Value)
	if err != nil {
		return "", fmt.Errorf("resolve session: %w", err)
	}
	return userID, nil
}

// StaticTokens builds a CookieAuthenticator over a fixed token-to-user
// table. Used in tests and local development.
func StaticTokens(cookieName string, tokens map[string]string) *CookieAuthenticator {
	return &CookieAuthenticator{
		CookieName: cookieName,
		Resolve: func(token string) (string, error) {
			userID, ok := tokens[token]
			if !ok {
				return "", fmt.Errorf("unknown session token")
			}
			return userID, nil
		},
	}
}

// authorize authenticates the request and checks that the caller owns the
// addressed partition. A caller may only sync "user-<their own id>".
func (s *Server) authorize(r *http.Request, storeID string) (string, error) {
	callerID, err := s.auth.Authenticate(r)
	if err != nil {
		return "", &UnauthorizedPartitionAccessError{StoreID: storeID, CallerID: ""}
	}
	if storeID != event.StoreID(callerID) {
		return "", &UnauthorizedPartitionAccessError{StoreID: storeID, CallerID: callerID}
	}
	return callerID, nil
}
