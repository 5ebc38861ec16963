package jwt

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/authrelay/services/identity"
	"github.com/tech-arch1tect/authrelay/services/jwt"
)

const claimsKey = "access_claims"

type TokenValidator interface {
	ValidateToken(tokenString string) (*jwt.Claims, error)
}

var tokenFailures = []struct {
	err     error
	message string
}{
	{jwt.ErrExpiredToken, "JWT token has expired"},
	{jwt.ErrMalformedToken, "Malformed JWT token"},
	{jwt.ErrInvalidSignature, "Invalid JWT token signature"},
}

// RequireAccessToken admits requests carrying a valid bearer access token.
// Rejections are authentication errors, rendered by the service error
// handler like any other failed operation.
func RequireAccessToken(validator TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, rejection := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if rejection != nil {
				return rejection
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				return rejectToken(err)
			}

			Authenticate(c, claims)
			return next(c)
		}
	}
}

func bearerToken(header string) (string, *identity.Error) {
	if header == "" {
		return "", identity.AuthenticationError("Authorization header required", nil)
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", identity.AuthenticationError("Invalid authorization header format", nil)
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", identity.AuthenticationError("JWT token required", nil)
	}
	return token, nil
}

func rejectToken(err error) *identity.Error {
	for _, failure := range tokenFailures {
		if errors.Is(err, failure.err) {
			return identity.AuthenticationError(failure.message, err)
		}
	}
	return identity.AuthenticationError("Invalid JWT token", err)
}

// Authenticate attaches verified claims to the request context.
func Authenticate(c echo.Context, claims *jwt.Claims) {
	c.Set(claimsKey, claims)
}

func Claims(c echo.Context) *jwt.Claims {
	claims, _ := c.Get(claimsKey).(*jwt.Claims)
	return claims
}

// UserID returns the subject of the access token, or "" on routes that are
// not guarded.
func UserID(c echo.Context) string {
	if claims := Claims(c); claims != nil {
		return claims.UserID
	}
	return ""
}
