package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Raniaaloun/chat-app/internal/core/domain"
)

// ctxClaims extracts the auth claims injected by the Auth middleware and
// performs a fast-fail check before any service call: user_id and role must
// both be present (presence proves the middleware ran and the token named a
// real identity).
func ctxClaims(c echo.Context) (userID string, role domain.Role, err error) {
	userID, _ = c.Get("user_id").(string)
	roleStr, _ := c.Get("role").(string)
	if userID == "" || roleStr == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return userID, domain.Role(roleStr), nil
}
