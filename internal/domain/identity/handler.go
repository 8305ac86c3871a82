package identity

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/domain/clinic"
	"github.com/clinicore/clinicore/internal/domain/session"
	"github.com/clinicore/clinicore/internal/domain/user"
	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/internal/platform/otp"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the public flows on the unauthenticated group and
// the session endpoints on the authenticated one.
func (h *Handler) RegisterRoutes(public, api *echo.Group) {
	public.POST("/auth/register", h.Register)
	public.POST("/auth/verify-registration", h.VerifyRegistration)
	public.POST("/auth/login", h.Login)
	public.POST("/auth/verify-login", h.VerifyLogin)
	public.POST("/auth/forgot-password", h.ForgotPassword)
	public.POST("/auth/reset-password", h.ResetPassword)

	public.POST("/auth/clinic/register", h.RegisterClinic)
	public.POST("/auth/clinic/login", h.LoginClinic)
	public.POST("/auth/clinic/forgot-password", h.ForgotClinicPassword)
	public.POST("/auth/clinic/reset-password", h.ResetClinicPassword)

	api.GET("/auth/me", h.Me)
	api.POST("/auth/logout", h.Logout)
}

// httpError maps service errors onto transport status codes. One-time-code
// failures collapse to a single message so a caller cannot distinguish a
// wrong code from an expired or absent one.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error())
	case errors.Is(err, otp.ErrInvalid), errors.Is(err, otp.ErrNotFound):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired code")
	case errors.Is(err, ErrNotVerified):
		return echo.NewHTTPError(http.StatusForbidden, ErrNotVerified.Error())
	case errors.Is(err, ErrAccountDisabled):
		return echo.NewHTTPError(http.StatusForbidden, ErrAccountDisabled.Error())
	case errors.Is(err, auth.ErrClinicExpired):
		return echo.NewHTTPError(http.StatusForbidden, auth.ErrClinicExpired.Error())
	case errors.Is(err, ErrEmailTaken):
		return echo.NewHTTPError(http.StatusConflict, ErrEmailTaken.Error())
	case errors.Is(err, clinic.ErrValidityTooShort):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}

// codeResponse acknowledges a flow step that mailed a code. DebugCode is
// only populated in dev mode.
type codeResponse struct {
	Message   string `json:"message"`
	DebugCode string `json:"debug_code,omitempty"`
}

type tokenResponse struct {
	Token string      `json:"token"`
	User  interface{} `json:"user,omitempty"`
}

func (h *Handler) Register(c echo.Context) error {
	var req struct {
		user.User
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	code, err := h.svc.RegisterUser(c.Request().Context(), &req.User, req.Password)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, codeResponse{
		Message:   "verification code sent to " + req.User.Email,
		DebugCode: code,
	})
}

func (h *Handler) VerifyRegistration(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t, u, err := h.svc.VerifyRegistration(c.Request().Context(), req.Email, req.Code)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, tokenResponse{Token: t, User: u})
}

func (h *Handler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	code, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, codeResponse{
		Message:   "login code sent to " + req.Email,
		DebugCode: code,
	})
}

func (h *Handler) VerifyLogin(c echo.Context) error {
	var req struct {
		Email  string  `json:"email"`
		Code   string  `json:"code"`
		Device *string `json:"device"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	info := session.LoginInfo{
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
		Device:    req.Device,
		Method:    session.MethodOTP,
	}
	t, u, err := h.svc.VerifyLogin(c.Request().Context(), req.Email, req.Code, info)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, tokenResponse{Token: t, User: u})
}

func (h *Handler) Logout(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	var req struct {
		DurationMinutes int `json:"duration_minutes"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	h.svc.Logout(c.Request().Context(), p, time.Duration(req.DurationMinutes)*time.Minute)
	return c.JSON(http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *Handler) ForgotPassword(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	code, err := h.svc.ForgotPassword(c.Request().Context(), req.Email)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, codeResponse{
		Message:   "reset code sent to " + req.Email,
		DebugCode: code,
	})
}

func (h *Handler) ResetPassword(c echo.Context) error {
	var req struct {
		Email       string `json:"email"`
		Code        string `json:"code"`
		NewPassword string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.ResetPassword(c.Request().Context(), req.Email, req.Code, req.NewPassword); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "password updated"})
}

func (h *Handler) RegisterClinic(c echo.Context) error {
	var req struct {
		clinic.Clinic
		Password       string `json:"password"`
		ValidityMonths int    `json:"validity_months"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ValidityMonths == 0 {
		req.ValidityMonths = clinic.MinValidityMonths
	}
	if err := h.svc.RegisterClinic(c.Request().Context(), &req.Clinic, req.Password, req.ValidityMonths); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, req.Clinic)
}

func (h *Handler) LoginClinic(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t, cl, err := h.svc.LoginClinic(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, tokenResponse{Token: t, User: cl})
}

func (h *Handler) ForgotClinicPassword(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	code, err := h.svc.ForgotClinicPassword(c.Request().Context(), req.Email)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, codeResponse{
		Message:   "reset code sent to " + req.Email,
		DebugCode: code,
	})
}

func (h *Handler) ResetClinicPassword(c echo.Context) error {
	var req struct {
		Email       string `json:"email"`
		Code        string `json:"code"`
		NewPassword string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.ResetClinicPassword(c.Request().Context(), req.Email, req.Code, req.NewPassword); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "password updated"})
}

// Me returns the normalized principal for the presented token.
func (h *Handler) Me(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	return c.JSON(http.StatusOK, p)
}
