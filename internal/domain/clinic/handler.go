package clinic

import (
	"errors"
	"net/http"
	"time"

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
	// Platform owner only.
	platform := api.Group("", auth.RequireRole(auth.RoleSuperMasterAdmin))
	platform.GET("/clinics", h.ListClinics)
	platform.DELETE("/clinics/:id", h.DeleteClinic)
	platform.POST("/clinics/:id/renew", h.RenewClinic)

	// Clinic management, scoped to the caller's own clinic for admins.
	scoped := api.Group("",
		auth.RequireRole(auth.RoleSuperMasterAdmin, auth.RoleSuperAdmin, auth.RoleClinicAdmin),
		auth.RequireClinicScope(auth.ClinicIDFromParam("id")),
	)
	scoped.GET("/clinics/:id", h.GetClinic)
	scoped.PUT("/clinics/:id", h.UpdateClinic)
	scoped.GET("/clinics/:id/validity", h.GetValidity)
	scoped.POST("/clinics/:id/users", h.AddUser)
	scoped.DELETE("/clinics/:id/users/:userID", h.RemoveUser)
}

func (h *Handler) ListClinics(c echo.Context) error {
	pg := pagination.FromContext(c)
	activeOnly := c.QueryParam("active") == "true"
	clinics, total, err := h.svc.List(c.Request().Context(), activeOnly, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(clinics, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetClinic(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	cl, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "clinic not found")
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) UpdateClinic(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	cl, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "clinic not found")
	}

	var req struct {
		Name      string  `json:"name"`
		Address   *string `json:"address"`
		Phone     *string `json:"phone"`
		AdminName string  `json:"admin_name"`
		IsActive  *bool   `json:"is_active"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Name != "" {
		cl.Name = req.Name
	}
	if req.Address != nil {
		cl.Address = req.Address
	}
	if req.Phone != nil {
		cl.Phone = req.Phone
	}
	if req.AdminName != "" {
		cl.AdminName = req.AdminName
	}
	if req.IsActive != nil {
		cl.IsActive = *req.IsActive
	}
	if err := h.svc.Update(c.Request().Context(), cl); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) DeleteClinic(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetValidity(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	cl, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "clinic not found")
	}
	if cl.Validity == nil {
		return echo.NewHTTPError(http.StatusNotFound, "clinic has no validity period")
	}
	now := time.Now().UTC()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"validity":          cl.Validity,
		"expired":           cl.Validity.Expired(now),
		"days_until_expiry": cl.Validity.DaysUntilExpiry(now),
	})
}

func (h *Handler) RenewClinic(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req struct {
		NewEndDate time.Time `json:"new_end_date"`
		Reason     string    `json:"reason"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.NewEndDate.IsZero() {
		return echo.NewHTTPError(http.StatusBadRequest, "new_end_date is required")
	}

	p, _ := auth.PrincipalFromContext(c.Request().Context())
	v, err := h.svc.Renew(c.Request().Context(), id, req.NewEndDate, p.ID, req.Reason)
	if err != nil {
		if errors.Is(err, ErrRenewalTooShort) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) AddUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var au AdditionalUser
	if err := c.Bind(&au); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.AddUser(c.Request().Context(), id, &au); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, au)
}

func (h *Handler) RemoveUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	if err := h.svc.RemoveUser(c.Request().Context(), id, userID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
