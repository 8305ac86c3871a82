package referral

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(
		auth.RoleSuperMasterAdmin, auth.RoleSuperAdmin, auth.RoleClinicAdmin,
		auth.RoleDoctor, auth.RoleNurse, auth.RolePatient,
	))
	read.GET("/referrals", h.List)
	read.GET("/referrals/:id", h.Get)

	api.POST("/referrals", h.Create, auth.RequireRole(auth.RoleDoctor))
	api.PUT("/referrals/:id/resolve", h.Resolve, auth.RequireRole(
		auth.RoleSuperMasterAdmin, auth.RoleSuperAdmin, auth.RoleClinicAdmin, auth.RoleDoctor,
	))
}

func (h *Handler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var r Referral
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), p, &r); err != nil {
		if he, ok := err.(*echo.HTTPError); ok {
			return he
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid referral id")
	}
	r, err := h.svc.Get(c.Request().Context(), p, id)
	if err != nil {
		return passthrough(err, "referral not found")
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) Resolve(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid referral id")
	}
	var body struct {
		Status     string     `json:"status"`
		ToDoctorID *uuid.UUID `json:"to_doctor_id"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r, err := h.svc.Resolve(c.Request().Context(), p, id, body.Status, body.ToDoctorID)
	if err != nil {
		return passthrough(err, "referral not found")
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)

	var f ListFilter
	if raw := c.QueryParam("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = &id
	}
	f.Status = c.QueryParam("status")

	refs, total, err := h.svc.List(c.Request().Context(), p, f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(refs, total, pg.Limit, pg.Offset))
}

func principal(c echo.Context) (*auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	return p, nil
}

func passthrough(err error, notFoundMsg string) error {
	if he, ok := err.(*echo.HTTPError); ok {
		return he
	}
	return echo.NewHTTPError(http.StatusNotFound, notFoundMsg)
}
