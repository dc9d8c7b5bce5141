package middleware

// UserID and Role read what JWTAuth or OptionalAuth stored in the context.
// Both return "" for unauthenticated requests.

import "github.com/labstack/echo/v4"

func UserID(c echo.Context) string {
    s, _ := c.Get(CtxUserID).(string)
    return s
}

func Role(c echo.Context) string {
    s, _ := c.Get(CtxRole).(string)
    return s
}
