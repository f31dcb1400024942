package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/MKhiriev/go-refsync/internal/logger"
)

const headerAPIKey = "Zotero-API-Key"

// auth rejects requests that do not carry the configured API key, either in
// the "Zotero-API-Key" header or as "Authorization: Bearer <key>". Rejected
// requests get 403 Forbidden. An empty configured key disables the check.
func (h *Handler) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		log := logger.FromRequest(r)

		key, err := apiKeyFromRequest(r)
		if err != nil {
			log.Err(err).Send()
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}

		if subtle.ConstantTimeCompare([]byte(key), []byte(h.apiKey)) != 1 {
			log.Err(ErrInvalidAPIKey).Send()
			http.Error(w, ErrInvalidAPIKey.Error(), http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func apiKeyFromRequest(r *http.Request) (string, error) {
	if key := r.Header.Get(headerAPIKey); key != "" {
		return key, nil
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrEmptyAPIKey
	}
	return getTokenFromAuthHeader(authHeader)
}

// getTokenFromAuthHeader extracts the key from a raw "Authorization" header
// value of the form "<scheme> <key>".
//
// It returns the following sentinel errors:
//   - [ErrInvalidAuthorizationHeader] if the header has fewer than two
//     space-separated parts.
//   - [ErrEmptyToken] if the second part is an empty string.
func getTokenFromAuthHeader(authHeader string) (string, error) {
	parts := strings.Split(authHeader, " ")
	if len(parts) < 2 {
		return "", ErrInvalidAuthorizationHeader
	}

	tokenString := parts[1]
	if tokenString == "" {
		return "", ErrEmptyToken
	}

	return tokenString, nil
}
