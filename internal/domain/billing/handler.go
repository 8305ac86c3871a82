package billing

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
	reads := api.Group("", auth.RequireRole(
		auth.RoleSuperMasterAdmin, auth.RoleSuperAdmin, auth.RoleClinicAdmin,
		auth.RoleBillingStaff, auth.RolePatient,
	))
	reads.GET("/invoices", h.List)
	reads.GET("/invoices/:id", h.Get)

	writes := api.Group("", auth.RequireRole(
		auth.RoleSuperMasterAdmin, auth.RoleSuperAdmin, auth.RoleClinicAdmin,
		auth.RoleBillingStaff,
	))
	writes.POST("/invoices", h.Create)
	writes.PUT("/invoices/:id/status", h.SetStatus)
}

func (h *Handler) Create(c echo.Context) error {
	caller, err := principal(c)
	if err != nil {
		return err
	}
	var inv Invoice
	if err := c.Bind(&inv); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.Create(c.Request().Context(), caller, &inv); err != nil {
		if he, ok := err.(*echo.HTTPError); ok {
			return he
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, inv)
}

func (h *Handler) Get(c echo.Context) error {
	caller, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid invoice id")
	}
	inv, err := h.svc.Get(c.Request().Context(), caller, id)
	if err != nil {
		return passthrough(err, "invoice not found")
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) SetStatus(c echo.Context) error {
	caller, err := principal(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid invoice id")
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	inv, err := h.svc.SetStatus(c.Request().Context(), caller, id, body.Status)
	if err != nil {
		return passthrough(err, "invoice not found")
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) List(c echo.Context) error {
	caller, err := principal(c)
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)

	var f ListFilter
	if raw := c.QueryParam("clinic_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid clinic_id")
		}
		f.ClinicID = &id
	}
	if raw := c.QueryParam("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = &id
	}
	f.Status = c.QueryParam("status")

	invoices, total, err := h.svc.List(c.Request().Context(), caller, f, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(invoices, total, p.Limit, p.Offset))
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
