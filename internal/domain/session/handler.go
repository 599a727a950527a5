package session

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hqrms/hqrms/internal/platform/auth"
)

type Handler struct {
	mgr *Manager
}

func NewHandler(mgr *Manager) *Handler {
	return &Handler{mgr: mgr}
}

func (h *Handler) Name() string { return "session" }

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/session/users", h.ListUsers)
	api.POST("/session/login", h.Login)
	api.POST("/session/logout", h.Logout)
	api.GET("/session", h.Current)
}

type loginRequest struct {
	Role Role `json:"role"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	s, err := h.mgr.Login(c.Request().Context(), req.Role)
	if err != nil {
		if errors.Is(err, ErrUnknownRole) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *Handler) Logout(c echo.Context) error {
	id := auth.SessionIDFromContext(c.Request().Context())
	if id == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "no session")
	}
	if err := h.mgr.Logout(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Current(c echo.Context) error {
	ctx := c.Request().Context()
	id := auth.SessionIDFromContext(ctx)
	if id == "" {
		// Dev requests without a token have an identity but no session.
		return c.JSON(http.StatusOK, map[string]interface{}{
			"user_id": auth.UserIDFromContext(ctx),
			"roles":   auth.RolesFromContext(ctx),
		})
	}
	s, err := h.mgr.Current(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) ListUsers(c echo.Context) error {
	return c.JSON(http.StatusOK, h.mgr.Users())
}
