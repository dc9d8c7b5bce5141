package handler

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cafe-ordering/internal/realtime"
)

// Realtime upgrades GET /ws and keeps the connection registered with the
// hub until the client leaves.
func Realtime(hub *realtime.Hub, log *slog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := hub.ServeWS(c.Response(), c.Request()); err != nil {
			log.Debug("realtime: upgrade failed", slog.String("error", err.Error()))
		}
		return nil
	}
}
