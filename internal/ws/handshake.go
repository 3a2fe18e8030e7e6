package ws

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"bazaar/internal/domain"
	"bazaar/internal/security"
)

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

// makeCheckOrigin allows non-browser clients (no Origin header) and any
// browser origin from the allowed list.
func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return true
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

// authenticate resolves the bearer token passed as a query parameter to a
// user. Every failure collapses to ErrUnauthorized; callers reject the
// handshake without detail.
func authenticate(r *http.Request, tokens *security.TokenService, users domain.UserRepository) (*domain.User, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	claims, err := tokens.Parse(token)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	id := security.UserID(claims)
	if id == 0 {
		return nil, domain.ErrUnauthorized
	}
	user, err := users.GetByID(r.Context(), id)
	if err != nil || user == nil || !user.IsActive {
		return nil, domain.ErrUnauthorized
	}
	return user, nil
}
