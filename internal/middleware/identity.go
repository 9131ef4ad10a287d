package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// currentUserID renders the user identity placed in context by JWTAuth
// as a string for cache and rate-limit keys. Unauthenticated requests
// map to "anon" so they share one bucket per IP.
func currentUserID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	}
	return "anon"
}
