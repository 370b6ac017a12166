package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/auth"
	"github.com/cmlabs-hris/hris-memorandum-go/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	TokenTypeAccess = "access"
	TokenTypeStream = "stream"

	streamTokenTTL = 5 * time.Minute
)

// Service verifies access tokens and mints the short-lived tokens used by the
// event stream, where browsers cannot send an Authorization header.
type Service interface {
	GenerateAccessToken(p user.Principal) (token string, expiresAt int64, err error)
	GenerateStreamToken(p user.Principal) (token string, expiresIn int, err error)
	ValidateStreamToken(tokenString string) (map[string]interface{}, error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpiration string
	tokenAuth             *jwtauth.JWTAuth
	now                   func() time.Time
}

func NewJWTService(secretKey string, accessTokenExpiration string) *JWTService {
	return &JWTService{
		accessTokenExpiration: accessTokenExpiration,
		tokenAuth:             jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		now:                   time.Now,
	}
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func (j *JWTService) GenerateAccessToken(p user.Principal) (token string, expiresAt int64, err error) {
	expDuration, err := time.ParseDuration(j.accessTokenExpiration)
	if err != nil {
		return "", 0, fmt.Errorf("invalid access token expiration %q: %w", j.accessTokenExpiration, err)
	}
	expiresAt = j.now().Add(expDuration).Unix()

	_, tokenString, err := j.tokenAuth.Encode(claimsFor(p, TokenTypeAccess, expiresAt))
	return tokenString, expiresAt, err
}

func (j *JWTService) GenerateStreamToken(p user.Principal) (token string, expiresIn int, err error) {
	expiresAt := j.now().Add(streamTokenTTL).Unix()

	_, tokenString, err := j.tokenAuth.Encode(claimsFor(p, TokenTypeStream, expiresAt))
	if err != nil {
		return "", 0, err
	}
	return tokenString, int(streamTokenTTL.Seconds()), nil
}

// ValidateStreamToken decodes a stream token and returns its claims.
func (j *JWTService) ValidateStreamToken(tokenString string) (map[string]interface{}, error) {
	token, err := jwtauth.VerifyToken(j.tokenAuth, tokenString)
	if err != nil {
		if errors.Is(err, jwtauth.ErrExpired) {
			return nil, auth.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
	}

	claims, err := token.AsMap(context.Background())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
	}
	if claims["type"] != TokenTypeStream {
		return nil, auth.ErrWrongTokenUse
	}
	return claims, nil
}

func claimsFor(p user.Principal, tokenType string, expiresAt int64) map[string]interface{} {
	claims := map[string]interface{}{
		"user_id":    p.UserID,
		"company_id": p.CompanyID,
		"role":       string(p.Role),
		"type":       tokenType,
		"exp":        expiresAt,
	}
	if p.Email != "" {
		claims["email"] = p.Email
	}
	if p.EmployeeID != "" {
		claims["employee_id"] = p.EmployeeID
	}
	return claims
}
