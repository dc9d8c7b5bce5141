package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/cafe-ordering/internal/utils"
)

// Context keys set by the auth middleware.
const (
    CtxUserID = "user_id"
    CtxRole   = "role"
)

// tokenFrom reads the access token from the `token` header used by the web
// client, falling back to an Authorization Bearer header.
func tokenFrom(r *http.Request) string {
    if t := strings.TrimSpace(r.Header.Get("token")); t != "" {
        return t
    }
    auth := r.Header.Get("Authorization")
    if strings.HasPrefix(auth, "Bearer ") {
        return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
    }
    return ""
}

// JWTAuth returns an Echo middleware that requires a valid access token and
// injects its subject and role into the request context, readable through
// UserID and Role.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw := tokenFrom(c.Request())
            if raw == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Not Authorized Login Again"})
            }
            id, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "invalid token"})
            }
            c.Set(CtxUserID, id.UserID)
            c.Set(CtxRole, id.Role)
            return next(c)
        }
    }
}

// OptionalAuth attaches the identity when a valid token is present and
// otherwise lets the request through as a guest. A bad token is not an
// error here.
func OptionalAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if raw := tokenFrom(c.Request()); raw != "" {
                if id, err := utils.ParseAccessToken(secret, raw); err == nil {
                    c.Set(CtxUserID, id.UserID)
                    c.Set(CtxRole, id.Role)
                }
            }
            return next(c)
        }
    }
}
