package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/authrelay/services/identity"
	"github.com/tech-arch1tect/authrelay/services/jwt"
	"github.com/tech-arch1tect/authrelay/testutils"
)

const testUserID = "0f7d5a44-3c1e-4a8f-9d8e-6f0b3b6f1e21"

func setupTestJWTService() *jwt.Service {
	cfg := testutils.GetTestConfig()
	return jwt.NewService(&cfg.JWT, nil)
}

func TestRequireAccessToken(t *testing.T) {
	e := echo.New()
	jwtService := setupTestJWTService()
	guard := RequireAccessToken(jwtService)

	successHandler := func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"user_id": UserID(c)})
	}

	cfg := testutils.GetTestConfig()
	cfg.JWT.AccessExpiry = -time.Minute
	expiredToken, _, err := jwt.NewService(&cfg.JWT, nil).GenerateToken(testUserID)
	require.NoError(t, err)

	cfg = testutils.GetTestConfig()
	cfg.JWT.SecretKey = "another-secret-key-that-is-long-enough-42"
	foreignToken, _, err := jwt.NewService(&cfg.JWT, nil).GenerateToken(testUserID)
	require.NoError(t, err)

	rejected := []struct {
		name    string
		header  string
		message string
	}{
		{"missing authorization header", "", "Authorization header required"},
		{"invalid authorization header format", "Token abc", "Invalid authorization header format"},
		{"empty bearer token", "Bearer ", "JWT token required"},
		{"malformed token", "Bearer invalid.jwt.token", "Malformed JWT token"},
		{"expired token", "Bearer " + expiredToken, "JWT token has expired"},
		{"token signed with another key", "Bearer " + foreignToken, "Invalid JWT token signature"},
	}

	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			c := e.NewContext(req, httptest.NewRecorder())

			err := guard(successHandler)(c)

			require.ErrorIs(t, err, identity.ErrAuthentication)
			assert.Equal(t, tt.message, err.(*identity.Error).Message)
			assert.Equal(t, http.StatusUnauthorized, identity.KindOf(err).HTTPStatus())
			assert.Empty(t, UserID(c))
		})
	}

	t.Run("valid token", func(t *testing.T) {
		token, _, err := jwtService.GenerateToken(testUserID)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, guard(successHandler)(c))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, testUserID, UserID(c))
		require.NotNil(t, Claims(c))
		assert.Equal(t, testUserID, Claims(c).Subject)
	})
}

func TestClaims_Unguarded(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	assert.Equal(t, "", UserID(c))
	assert.Nil(t, Claims(c))

	Authenticate(c, &jwt.Claims{UserID: "user-1"})
	assert.Equal(t, "user-1", UserID(c))
}
