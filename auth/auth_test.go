package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firmdesk/errs"
	"firmdesk/models"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	user := &models.User{
		ID:       1,
		Username: "jane",
		Name:     "Jane Doe",
		Role:     "admin",
	}

	token, err := GenerateToken(user, "acmefirm")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	parsedToken, err := jwt.ParseWithClaims(token, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return mySigningKey, nil
	})
	require.NoError(t, err)
	assert.True(t, parsedToken.Valid)

	claims, ok := parsedToken.Claims.(*CustomClaims)
	require.True(t, ok)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "acmefirm", claims.TenantName)
	assert.Equal(t, "Jane Doe", claims.Name)
	assert.Equal(t, "admin", claims.Role)
}

func TestParseAndValidateToken(t *testing.T) {
	t.Run("Valid token", func(t *testing.T) {
		user := &models.User{ID: 7, Name: "Jane", Role: "employee"}
		token, err := GenerateToken(user, "acmefirm")
		require.NoError(t, err)

		claims, err := ParseAndValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, uint(7), claims.UserID)
		assert.Equal(t, "acmefirm", claims.TenantName)
	})

	t.Run("Garbage token", func(t *testing.T) {
		_, err := ParseAndValidateToken("not-a-token")
		require.Error(t, err)
		assert.Equal(t, "forbidden", err.Error())
		assert.True(t, errs.IsKind(err, errs.KindForbidden))
	})

	t.Run("Wrong signature", func(t *testing.T) {
		other := jwt.NewWithClaims(jwt.SigningMethodHS256, &CustomClaims{UserID: 1})
		signed, err := other.SignedString([]byte("some-other-key"))
		require.NoError(t, err)

		_, err = ParseAndValidateToken(signed)
		require.Error(t, err)
		assert.Equal(t, "forbidden", err.Error())
	})

	t.Run("Expired token", func(t *testing.T) {
		signed := expiredToken(t, 42)

		_, err := ParseAndValidateToken(signed)
		require.Error(t, err)
		assert.Equal(t, "token is either expired or not active yet", err.Error())
		assert.True(t, errs.IsKind(err, errs.KindForbidden))
	})

	t.Run("Not yet valid token", func(t *testing.T) {
		claims := &CustomClaims{
			UserID: 42,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(2 * time.Hour)),
				IssuedAt:  jwt.NewNumericDate(time.Now()),
				NotBefore: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(mySigningKey)
		require.NoError(t, err)

		_, err = ParseAndValidateToken(signed)
		require.Error(t, err)
		assert.Equal(t, "token is either expired or not active yet", err.Error())
	})
}

// expiredToken signs a well-formed token whose validity window closed an hour
// ago.
func expiredToken(t *testing.T, userID uint) string {
	t.Helper()
	claims := &CustomClaims{
		UserID:     userID,
		TenantName: "acmefirm",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			NotBefore: jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(mySigningKey)
	require.NoError(t, err)
	return signed
}

// protectedService builds a single-route container behind AuthFilter that
// echoes the attached claims.
func protectedService(t *testing.T) *restful.Container {
	t.Helper()
	container := restful.NewContainer()
	ws := new(restful.WebService)
	ws.Path("/protected").Produces(restful.MIME_JSON)
	ws.Route(ws.GET("").Filter(AuthFilter()).To(func(req *restful.Request, resp *restful.Response) {
		claims, ok := ClaimsFromRequest(req)
		require.True(t, ok)
		_ = resp.WriteHeaderAndJson(http.StatusOK, map[string]interface{}{
			"user_id":     claims.UserID,
			"tenant_name": claims.TenantName,
		}, restful.MIME_JSON)
	}))
	container.Add(ws)
	return container
}

func TestAuthFilter(t *testing.T) {
	t.Run("No token", func(t *testing.T) {
		container := protectedService(t)

		req := httptest.NewRequest("GET", "/protected", nil)
		w := httptest.NewRecorder()
		container.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Authorization header required")
	})

	t.Run("Invalid token format", func(t *testing.T) {
		container := protectedService(t)

		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "InvalidTokenFormat")
		w := httptest.NewRecorder()
		container.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid authorization header format")
	})

	t.Run("Invalid token", func(t *testing.T) {
		container := protectedService(t)

		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		w := httptest.NewRecorder()
		container.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Expired token", func(t *testing.T) {
		container := protectedService(t)

		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+expiredToken(t, 3))
		w := httptest.NewRecorder()
		container.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "token is either expired or not active yet")
	})

	t.Run("Valid token attaches identity", func(t *testing.T) {
		container := protectedService(t)

		user := &models.User{ID: 3, Name: "Jane", Role: "employee"}
		token, err := GenerateToken(user, "acmefirm")
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		container.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "acmefirm")
	})
}
