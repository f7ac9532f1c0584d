package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-sync-go/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-sync-go/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

// AuthRequired accepts either basic credentials of the configured principal or a bearer
// access token issued by jwtService.
func AuthRequired(authService auth.AuthService, jwtService jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			if username, password, ok := r.BasicAuth(); ok {
				err := authService.Authenticate(r.Context(), auth.Credentials{Username: username, Password: password})
				if err != nil {
					w.Header().Set("WWW-Authenticate", `Basic realm="attendance-sync"`)
					response.HandleError(w, err)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			tokenString := jwtauth.TokenFromHeader(r)
			if tokenString == "" {
				w.Header().Set("WWW-Authenticate", `Basic realm="attendance-sync"`)
				response.HandleError(w, auth.ErrMissingCredentials)
				return
			}

			if _, err := jwtService.ValidateAccessToken(tokenString); err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}
