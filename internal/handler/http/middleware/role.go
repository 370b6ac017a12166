package middleware

import (
	"fmt"
	"net/http"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/handler/http/response"
	"github.com/go-chi/jwtauth/v5"
)

func principalFrom(r *http.Request) (user.Principal, error) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return user.Principal{}, err
	}
	return user.FromClaims(claims)
}

// RequirePrincipal rejects tokens whose claims do not describe a company
// member: user, company and a known role are all needed downstream.
func RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := principalFrom(r); err != nil {
			response.Unauthorized(w, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermission gates a route on the caller's role.
func RequirePermission(permission user.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := principalFrom(r)
			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}
			if !p.Can(permission) {
				response.Forbidden(w, fmt.Sprintf("Insufficient permissions: required '%s', but user role is '%s'", permission, p.Role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
