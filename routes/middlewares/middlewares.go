package middlewares

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/oauth"
)

type ctxKey int

const caregiverIDKey ctxKey = iota

// Admin guards a route tree behind a bearer token carrying the admin role.
func Admin(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return chi.Chain(oauth.Authorize(secret, nil), requireRole("admin")).Handler(next)
	}
}

// Caregiver guards caregiver endpoints and stores the authenticated
// caregiver's id in the request context for the handlers.
func Caregiver(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return chi.Chain(oauth.Authorize(secret, nil), requireRole("caregiver"), withCaregiverID).Handler(next)
	}
}

func requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := r.Context().Value(oauth.ClaimsContext).(map[string]string)

			found := false
			if rolesClaim, ok := claims["roles"]; ok {
				for _, have := range strings.Split(rolesClaim, ",") {
					if have == role {
						found = true
						break
					}
				}
			}

			if !found {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func withCaregiverID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := r.Context().Value(oauth.ClaimsContext).(map[string]string)

		id, err := strconv.ParseInt(claims["caregiver_id"], 10, 64)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), caregiverIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CaregiverID returns the authenticated caregiver's id set by Caregiver.
func CaregiverID(r *http.Request) int64 {
	id, _ := r.Context().Value(caregiverIDKey).(int64)
	return id
}
