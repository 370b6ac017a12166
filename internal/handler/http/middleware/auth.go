package middleware

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/auth"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

// AuthRequired rejects requests without a verified access token. It runs
// after jwtauth.Verifier.
func AuthRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			if errors.Is(err, jwtauth.ErrExpired) {
				response.HandleError(w, auth.ErrTokenExpired)
				return
			}
			response.Unauthorized(w, err.Error())
			return
		}

		if token == nil {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}

		tokenType, ok := claims["type"].(string)
		if !ok || tokenType != jwt.TokenTypeAccess {
			response.HandleError(w, auth.ErrWrongTokenUse)
			return
		}

		next.ServeHTTP(w, r)
	})
}
