package admin

import (
	"errors"
	"net/http"

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

func (h *Handler) RegisterRoutes(api *echo.Group, requireMFA echo.MiddlewareFunc) {
	api.GET("/me", h.Me, auth.RequireRole(auth.RoleViewer))
	api.GET("/admins", h.List, auth.RequireRole(auth.RoleAdmin))
	api.GET("/admins/:id", h.Get, auth.RequireRole(auth.RoleAdmin))
	api.PUT("/admins/:id/role", h.UpdateRole, auth.RequireRole(auth.RoleSuperAdmin), requireMFA)
}

func (h *Handler) Me(c echo.Context) error {
	actor := auth.ActorFromContext(c.Request().Context())
	if actor == nil {
		return auth.HTTPError(auth.ErrMissingToken)
	}
	return h.getByID(c, actor.ID)
}

func (h *Handler) Get(c echo.Context) error {
	return h.getByID(c, c.Param("id"))
}

func (h *Handler) getByID(c echo.Context, id string) error {
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return h.toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return h.toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type roleRequest struct {
	Role auth.Role `json:"role"`
}

func (h *Handler) UpdateRole(c echo.Context) error {
	var req roleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	actor := auth.ActorFromContext(c.Request().Context())
	if actor == nil {
		return auth.HTTPError(auth.ErrMissingToken)
	}

	a, err := h.svc.UpdateRole(c.Request().Context(), actor.ID, c.Param("id"), req.Role)
	if err != nil {
		return h.toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) toHTTPError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrAdminNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSelfDemotion):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidRole):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		h.svc.logger.Error().Err(err).Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).Msg("request failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
