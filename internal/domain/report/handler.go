package report

import (
	"errors"
	"io"
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

// RegisterRoutes mounts the report and dashboard endpoints on a session-gated
// group. Updates additionally pass the MFA gate.
func (h *Handler) RegisterRoutes(api *echo.Group, requireMFA echo.MiddlewareFunc) {
	read := api.Group("", auth.RequireRole(auth.RoleViewer))
	read.GET("/reports", h.List)
	read.GET("/reports/:origin/:id", h.Get)
	read.GET("/dashboard/stats", h.Stats)
	read.GET("/dashboard/urgent", h.Urgent)
	read.GET("/dashboard/status-distribution", h.StatusDistribution)
	read.GET("/dashboard/monthly-volume", h.MonthlyVolume)

	api.PATCH("/reports/:origin/:id", h.Update, auth.RequireRole(auth.RoleAdmin), requireMFA)
}

// RegisterIntake mounts the public submission endpoint behind gate.
func (h *Handler) RegisterIntake(public *echo.Group, gate echo.MiddlewareFunc) {
	public.POST("/intake/:origin", h.Submit, gate)
}

func (h *Handler) List(c echo.Context) error {
	views, err := h.svc.ListReports(c.Request().Context())
	if err != nil {
		return h.toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, views)
}

func (h *Handler) Get(c echo.Context) error {
	origin, err := ParseOrigin(c.Param("origin"))
	if err != nil {
		return h.toHTTPError(c, err)
	}
	v, err := h.svc.GetReport(c.Request().Context(), origin, c.Param("id"))
	if err != nil {
		return h.toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

type updateRequest struct {
	Status     *string `json:"status"`
	Severity   *string `json:"severity"`
	AdminNotes *string `json:"adminNotes"`
	Assignee   *string `json:"assignee"`
}

func (r updateRequest) updates() Updates {
	var u Updates
	if r.Status != nil {
		st := Status(*r.Status)
		u.Status = &st
	}
	if r.Severity != nil {
		sv := Severity(*r.Severity)
		u.Severity = &sv
	}
	u.AdminNotes = r.AdminNotes
	u.Assignee = r.Assignee
	return u
}

func (h *Handler) Update(c echo.Context) error {
	origin, err := ParseOrigin(c.Param("origin"))
	if err != nil {
		return h.toHTTPError(c, err)
	}
	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	actor := auth.ActorFromContext(c.Request().Context())
	updated, err := h.svc.UpdateReport(c.Request().Context(), origin, c.Param("id"), req.updates(), actor)
	if err != nil {
		return h.toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) Stats(c echo.Context) error {
	st, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return h.toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) Urgent(c echo.Context) error {
	views, err := h.svc.Urgent(c.Request().Context())
	if err != nil {
		return h.toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, views)
}

func (h *Handler) StatusDistribution(c echo.Context) error {
	dist, err := h.svc.StatusDistribution(c.Request().Context())
	if err != nil {
		return h.toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, dist)
}

func (h *Handler) MonthlyVolume(c echo.Context) error {
	vol, err := h.svc.MonthlyVolume(c.Request().Context())
	if err != nil {
		return h.toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, vol)
}

type submitResponse struct {
	ID          string `json:"id"`
	ReferenceID string `json:"referenceId"`
	Status      Status `json:"status"`
}

func (h *Handler) Submit(c echo.Context) error {
	origin, err := ParseOrigin(c.Param("origin"))
	if err != nil {
		return h.toHTTPError(c, err)
	}
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return httpErr
		}
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}
	r, err := h.svc.Submit(c.Request().Context(), origin, body)
	if err != nil {
		return h.toHTTPError(c, err)
	}
	return c.JSON(http.StatusCreated, submitResponse{ID: r.ID, ReferenceID: r.ReferenceID, Status: r.Status})
}

func (h *Handler) toHTTPError(c echo.Context, err error) error {
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr
	case errors.Is(err, ErrReportNotFound):
		return echo.NewHTTPError(http.StatusNotFound, ErrReportNotFound.Error())
	case errors.Is(err, ErrReportClosed):
		return echo.NewHTTPError(http.StatusForbidden, ErrReportClosed.Error())
	case errors.Is(err, ErrCloseRequiresSuperAdmin):
		return echo.NewHTTPError(http.StatusForbidden, ErrCloseRequiresSuperAdmin.Error())
	case errors.Is(err, ErrInvalidUpdate), errors.Is(err, ErrInvalidOrigin), errors.Is(err, ErrInvalidSubmission):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInsufficientRole):
		return auth.HTTPError(err)
	}
	h.svc.logger.Error().Err(err).Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).Msg("request failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
