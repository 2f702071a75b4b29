package notification

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pvportal/pvportal/internal/platform/auth"
	"github.com/pvportal/pvportal/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/notifications", h.List, auth.RequireRole(auth.RoleViewer))
	api.POST("/notifications/:id/read", h.MarkRead, auth.RequireRole(auth.RoleViewer))
	api.DELETE("/notifications", h.Clear, auth.RequireRole(auth.RoleAdmin))
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		h.svc.logger.Error().Err(err).Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).Msg("list notifications")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list notifications")
	}
	if items == nil {
		items = []*Notification{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) MarkRead(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid notification id")
	}
	if err := h.svc.MarkRead(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		h.svc.logger.Error().Err(err).Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).Msg("mark notification read")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update notification")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Clear(c echo.Context) error {
	n, err := h.svc.Clear(c.Request().Context())
	if err != nil {
		h.svc.logger.Error().Err(err).Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).Msg("clear notifications")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to clear notifications")
	}
	return c.JSON(http.StatusOK, map[string]int64{"cleared": n})
}
