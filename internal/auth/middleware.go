package auth

import (
	"net/http"
	"strings"

	"github.com/shortlyhq/shortly/internal/errx"
	"github.com/shortlyhq/shortly/internal/httpx"
)

// RequireAuth returns middleware that validates the Authorization bearer
// token and stores the resolved owner identity in the request context.
func RequireAuth(svc Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized",
					"missing bearer token", nil)
				return
			}

			user, err := svc.Validate(r.Context(), token)
			if err != nil {
				if errx.KindOf(err) == errx.Unauthorized {
					httpx.WriteError(w, http.StatusUnauthorized, "unauthorized",
						"invalid or expired token", nil)
					return
				}
				httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable",
					"Unable to authenticate at this time. Please try again.", nil)
				return
			}

			ctx := httpx.WithOwner(r.Context(), httpx.Owner{
				ID:       user.ID,
				Username: user.Username,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return header[len(prefix):]
}
