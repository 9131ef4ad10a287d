package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/timeslot-reservation/internal/middleware"
	"github.com/iliyamo/timeslot-reservation/internal/utils"
)

func runProtected(t *testing.T, secret, authHeader string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := middleware.JWTAuth(secret)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec, c
}

func Test_JWTAuth_ValidToken(t *testing.T) {
	const secret = "unit-secret"
	at, err := utils.NewAccessToken(secret, 7, "CUSTOMER", 15)
	require.NoError(t, err)

	rec, c := runProtected(t, secret, "Bearer "+at.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(7), c.Get("user_id"))
	assert.Equal(t, "CUSTOMER", c.Get("role"))
}

func Test_JWTAuth_MissingHeader(t *testing.T) {
	rec, _ := runProtected(t, "unit-secret", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func Test_JWTAuth_WrongSecret(t *testing.T) {
	at, err := utils.NewAccessToken("other-secret", 7, "CUSTOMER", 15)
	require.NoError(t, err)

	rec, _ := runProtected(t, "unit-secret", "Bearer "+at.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func Test_RequireRole(t *testing.T) {
	e := echo.New()
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/timeslots", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("role", "ADMIN")
	require.NoError(t, middleware.RequireRole("ADMIN")(next)(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.Set("role", "CUSTOMER")
	require.NoError(t, middleware.RequireRole("ADMIN")(next)(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
