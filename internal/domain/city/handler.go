package city

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hqrms/hqrms/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Name() string { return "city" }

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/city", auth.RequireRole("city"))
	g.GET("/hospitals", h.ListHospitals)
	g.GET("/hospitals/:id", h.GetHospital)
	g.PUT("/hospitals/:id", h.ReportHospital)
	g.GET("/overview", h.GetOverview)
}

func (h *Handler) ListHospitals(c echo.Context) error {
	hs, err := h.svc.ListHospitals(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, hs)
}

func (h *Handler) GetHospital(c echo.Context) error {
	hosp, err := h.svc.GetHospital(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrHospitalNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "hospital not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, hosp)
}

func (h *Handler) ReportHospital(c echo.Context) error {
	var hosp Hospital
	if err := c.Bind(&hosp); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	hosp.ID = c.Param("id")
	if err := h.svc.ReportHospital(c.Request().Context(), &hosp); err != nil {
		if errors.Is(err, ErrInvalidHospital) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, hosp)
}

func (h *Handler) GetOverview(c echo.Context) error {
	ov, err := h.svc.Overview(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, ov)
}
