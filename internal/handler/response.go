package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cafe-ordering/internal/service"
)

// requestTimeout bounds the storage work of a single request.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// bind decodes the body into dst and runs the registered validator.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return &service.ValidationError{Msg: "invalid request body"}
	}
	return c.Validate(dst)
}

func ok(c echo.Context, status int, body echo.Map) error {
	body["success"] = true
	return c.JSON(status, body)
}

func failMsg(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "message": msg})
}

// fail maps a service error to its HTTP status. Internal errors are logged
// and answered with a generic message.
func fail(c echo.Context, log *slog.Logger, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return failMsg(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return failMsg(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSeatOccupied),
		errors.Is(err, service.ErrDuplicateName),
		errors.Is(err, service.ErrInvalidState):
		return failMsg(c, http.StatusConflict, err.Error())
	}
	log.Error("http: request failed",
		slog.String("method", c.Request().Method),
		slog.String("path", c.Path()),
		slog.String("error", err.Error()))
	return failMsg(c, http.StatusInternalServerError, "internal error")
}
