package session

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/platform/auth"
	"github.com/clinicore/clinicore/pkg/pagination"
)

type Handler struct {
	tracker *Tracker
}

func NewHandler(tracker *Tracker) *Handler {
	return &Handler{tracker: tracker}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/sessions/history", h.GetHistory)
	api.GET("/sessions/activity", h.GetActivity)
	api.POST("/sessions/activity", h.PostActivity)
	api.GET("/sessions/stats", h.GetStats)
}

// targetUserID resolves whose records to read: the caller's own, or any
// user's for the platform owner via ?user_id.
func targetUserID(c echo.Context) (uuid.UUID, error) {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	if raw := c.QueryParam("user_id"); raw != "" {
		if p.Role != auth.RoleSuperMasterAdmin {
			return uuid.Nil, echo.NewHTTPError(http.StatusForbidden, "only platform admins may view other users")
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid user_id")
		}
		return id, nil
	}
	return p.ID, nil
}

func (h *Handler) GetHistory(c echo.Context) error {
	userID, err := targetUserID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	entries, total, err := h.tracker.History(c.Request().Context(), userID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetActivity(c echo.Context) error {
	userID, err := targetUserID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	acts, total, err := h.tracker.ActivityLog(c.Request().Context(), userID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(acts, total, pg.Limit, pg.Offset))
}

// PostActivity records an action against the caller's own log. Clients use
// this to note page-level events worth keeping with the session trail.
func (h *Handler) PostActivity(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	var body struct {
		Action string  `json:"action"`
		Detail *string `json:"detail"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.Action == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "action is required")
	}
	h.tracker.RecordActivity(c.Request().Context(), p.ID, body.Action, body.Detail)
	return c.JSON(http.StatusAccepted, map[string]string{"message": "recorded"})
}

func (h *Handler) GetStats(c echo.Context) error {
	userID, err := targetUserID(c)
	if err != nil {
		return err
	}
	stats, err := h.tracker.Stats(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}
