package settings

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pvportal/pvportal/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the settings endpoints on an already session-gated
// group. Writes additionally pass the MFA gate.
func (h *Handler) RegisterRoutes(api *echo.Group, requireMFA echo.MiddlewareFunc) {
	api.GET("/settings", h.Get, auth.RequireRole(auth.RoleViewer))
	api.PUT("/settings", h.Update, auth.RequireRole(auth.RoleSuperAdmin), requireMFA)
}

func (h *Handler) Get(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Current(c.Request().Context()))
}

func (h *Handler) Update(c echo.Context) error {
	// fields absent from the body keep their stored values
	cur, err := h.svc.Stored(c.Request().Context())
	if err != nil {
		h.svc.logger.Error().Err(err).
			Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
			Msg("settings update aborted")
		return echo.NewHTTPError(http.StatusServiceUnavailable, "settings store unavailable, nothing was changed")
	}
	in := *cur
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	actor := auth.ActorFromContext(c.Request().Context())
	label := ""
	if actor != nil {
		label = actor.DisplayLabel()
	}

	out, err := h.svc.Update(c.Request().Context(), &in, label)
	if err != nil {
		if errors.Is(err, ErrInvalidSettings) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		h.svc.logger.Error().Err(err).
			Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
			Msg("update settings")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update settings")
	}
	return c.JSON(http.StatusOK, out)
}
