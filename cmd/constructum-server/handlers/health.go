package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	apierr "github.com/constructum-ci/constructum/pkg/api/errors"
)

// Pinger reports whether the state store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles GET /api/health.
func HealthHandler(store Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")

		if err := store.Ping(c.Request().Context()); err != nil {
			return apierr.ServiceUnavailable("state store is unreachable", err)
		}

		c.JSON(http.StatusOK, struct {
			Status string `json:"status"`
		}{Status: "ok"})

		return nil
	}
}
