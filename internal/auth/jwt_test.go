package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestGenerateTokenAndSubjectRoundTrip(t *testing.T) {
	secret := "test-secret"
	signed, expiresAt, err := GenerateToken("admin", secret, time.Hour)
	assert.NoError(t, err)
	assert.NotEmpty(t, signed)
	assert.True(t, expiresAt.After(time.Now()))

	token, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	assert.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user", token)

	subject, err := SubjectFromContext(c)
	assert.NoError(t, err)
	assert.Equal(t, "admin", subject)
}

func TestGenerateTokenValidation(t *testing.T) {
	_, _, err := GenerateToken("", "secret", time.Hour)
	assert.Error(t, err)

	_, _, err = GenerateToken("admin", "", time.Hour)
	assert.Error(t, err)

	_, _, err = GenerateToken("admin", "secret", 0)
	assert.Error(t, err)
}

func TestSubjectFromContextWithoutToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	_, err := SubjectFromContext(c)
	assert.Error(t, err)

	httpErr, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestJWTMiddlewareRejectsMissingToken(t *testing.T) {
	e := echo.New()
	e.Use(JWTMiddleware("secret", func(c echo.Context) bool {
		return c.Request().URL.Path == "/public"
	}))
	e.GET("/private", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/public", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/public", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTMiddlewareAcceptsValidToken(t *testing.T) {
	secret := "secret"
	e := echo.New()
	e.Use(JWTMiddleware(secret, nil))
	e.GET("/private", func(c echo.Context) error {
		subject, err := SubjectFromContext(c)
		if err != nil {
			return err
		}
		return c.String(http.StatusOK, subject)
	})

	signed, _, err := GenerateToken("admin", secret, time.Hour)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", rec.Body.String())
}
