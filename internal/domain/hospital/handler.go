package hospital

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hqrms/hqrms/internal/domain/triage"
	"github.com/hqrms/hqrms/internal/platform/auth"
	"github.com/hqrms/hqrms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Name() string { return "hospital" }

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Reception desk
	reception := api.Group("", auth.RequireRole("reception", "doctor"))
	reception.POST("/patients", h.RegisterPatient)
	reception.POST("/patients/:id/assign", h.AssignDoctor)
	reception.GET("/patients", h.ListPatients)
	reception.GET("/patients/:id", h.GetPatient)
	reception.GET("/patients/:id/wait", h.GetWait)

	// Doctor dashboard
	doctors := api.Group("", auth.RequireRole("doctor", "reception"))
	doctors.GET("/doctors", h.ListDoctors)
	doctors.GET("/doctors/:id/queue", h.GetDoctorQueue)

	clinical := api.Group("", auth.RequireRole("doctor"))
	clinical.POST("/doctors/:id/call-next", h.CallNext)
	clinical.POST("/doctors/:id/complete", h.CompleteConsultation)
	clinical.PUT("/doctors/:id/status", h.UpdateDoctorStatus)
	clinical.POST("/prescriptions", h.CreatePrescription)
	clinical.POST("/admissions", h.AdmitPatient)

	// Beds
	beds := api.Group("", auth.RequireRole("doctor"))
	beds.GET("/beds", h.ListBeds)
	beds.POST("/beds/:id/discharge", h.DischargePatient)
	beds.PUT("/beds/:id/status", h.UpdateBedStatus)

	// Pharmacy
	pharmacy := api.Group("", auth.RequireRole("pharmacy"))
	pharmacy.GET("/medicines", h.ListMedicines)
	pharmacy.POST("/medicines", h.AddMedicine)
	pharmacy.PUT("/medicines/:id/stock", h.UpdateMedicineStock)
	pharmacy.GET("/prescriptions", h.ListPrescriptions)
	pharmacy.POST("/prescriptions/:id/dispense", h.DispensePrescription)

	// Dashboards
	dash := api.Group("", auth.RequireRole("reception", "doctor", "pharmacy"))
	dash.GET("/snapshot", h.GetSnapshot)
	dash.GET("/overview", h.GetOverview)
}

// httpError maps orchestrator errors onto HTTP status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrPatientNotFound),
		errors.Is(err, ErrDoctorNotFound),
		errors.Is(err, ErrBedNotFound),
		errors.Is(err, ErrMedicineNotFound),
		errors.Is(err, ErrPrescriptionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNoBedAvailable),
		errors.Is(err, ErrNoActiveConsultation),
		errors.Is(err, ErrDoctorInConsultation),
		errors.Is(err, ErrPatientInConsultation),
		errors.Is(err, ErrAlreadyDispensed),
		errors.Is(err, ErrBedOccupied),
		errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}

// -- Reception Handlers --

func (h *Handler) RegisterPatient(c echo.Context) error {
	var reg Registration
	if err := c.Bind(&reg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.RegisterPatient(c.Request().Context(), reg)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

type assignRequest struct {
	DoctorID string `json:"doctor_id"`
}

func (h *Handler) AssignDoctor(c echo.Context) error {
	var req assignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.DoctorID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "doctor_id is required")
	}
	ctx := c.Request().Context()
	if err := h.svc.AssignDoctorToPatient(ctx, c.Param("id"), req.DoctorID); err != nil {
		return httpError(err)
	}
	p, err := h.svc.Patient(ctx, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := PatientFilter{
		Status:         PatientStatus(c.QueryParam("status")),
		Classification: triage.Classification(c.QueryParam("classification")),
		DoctorID:       c.QueryParam("doctor_id"),
		Query:          c.QueryParam("q"),
	}
	items, total := h.svc.ListPatients(c.Request().Context(), f, pg.Limit, pg.Offset)
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := h.svc.Patient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

type waitResponse struct {
	PatientID   string `json:"patient_id"`
	DoctorID    string `json:"doctor_id,omitempty"`
	Position    int    `json:"position"`
	WaitMinutes int    `json:"wait_minutes"`
	Known       bool   `json:"known"`
}

func (h *Handler) GetWait(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	p, err := h.svc.Patient(ctx, id)
	if err != nil {
		return httpError(err)
	}
	pos, err := h.svc.QueuePosition(ctx, id)
	if err != nil {
		return httpError(err)
	}
	wait, err := h.svc.WaitingTime(ctx, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, waitResponse{
		PatientID:   id,
		DoctorID:    p.AssignedDoctor,
		Position:    pos,
		WaitMinutes: wait,
		Known:       wait != triage.WaitUnknown,
	})
}

// -- Doctor Handlers --

func (h *Handler) ListDoctors(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.ListDoctors(c.Request().Context(), c.QueryParam("specialization")))
}

func (h *Handler) GetDoctorQueue(c echo.Context) error {
	v, err := h.svc.DoctorQueue(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) CallNext(c echo.Context) error {
	p, err := h.svc.CallNextPatient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	if p == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, p)
}

type completeRequest struct {
	Action Action `json:"action"`
}

func (h *Handler) CompleteConsultation(c echo.Context) error {
	var req completeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.CompleteConsultation(c.Request().Context(), c.Param("id"), req.Action)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

type doctorStatusRequest struct {
	Status DoctorStatus `json:"status"`
}

func (h *Handler) UpdateDoctorStatus(c echo.Context) error {
	var req doctorStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if err := h.svc.UpdateDoctorStatus(ctx, c.Param("id"), req.Status); err != nil {
		return httpError(err)
	}
	d, err := h.svc.Doctor(ctx, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, d)
}

type prescriptionRequest struct {
	PatientID string        `json:"patient_id"`
	DoctorID  string        `json:"doctor_id"`
	Items     []ItemRequest `json:"items"`
}

func (h *Handler) CreatePrescription(c echo.Context) error {
	var req prescriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rx, err := h.svc.CreatePrescription(c.Request().Context(), req.PatientID, req.DoctorID, req.Items)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, rx)
}

type admissionRequest struct {
	PatientID string  `json:"patient_id"`
	BedType   BedType `json:"bed_type"`
}

func (h *Handler) AdmitPatient(c echo.Context) error {
	var req admissionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b, err := h.svc.AdmitPatient(c.Request().Context(), req.PatientID, req.BedType)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, b)
}

// -- Bed Handlers --

func (h *Handler) ListBeds(c echo.Context) error {
	beds := h.svc.ListBeds(c.Request().Context(), BedType(c.QueryParam("type")), BedStatus(c.QueryParam("status")))
	return c.JSON(http.StatusOK, beds)
}

func (h *Handler) DischargePatient(c echo.Context) error {
	p, err := h.svc.DischargePatient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	if p == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, p)
}

type bedStatusRequest struct {
	Status BedStatus `json:"status"`
}

func (h *Handler) UpdateBedStatus(c echo.Context) error {
	var req bedStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	if err := h.svc.UpdateBedStatus(ctx, c.Param("id"), req.Status); err != nil {
		return httpError(err)
	}
	b, err := h.svc.Bed(ctx, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

// -- Pharmacy Handlers --

func (h *Handler) ListMedicines(c echo.Context) error {
	ctx := c.Request().Context()
	if low, _ := strconv.ParseBool(c.QueryParam("low_stock")); low {
		return c.JSON(http.StatusOK, h.svc.LowStockMedicines(ctx))
	}
	return c.JSON(http.StatusOK, h.svc.SearchMedicines(ctx, c.QueryParam("q")))
}

func (h *Handler) AddMedicine(c echo.Context) error {
	var in NewMedicine
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m, err := h.svc.AddMedicine(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, m)
}

type stockRequest struct {
	Stock *int `json:"stock"`
}

func (h *Handler) UpdateMedicineStock(c echo.Context) error {
	var req stockRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Stock == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "stock is required")
	}
	ctx := c.Request().Context()
	if err := h.svc.UpdateMedicineStock(ctx, c.Param("id"), *req.Stock); err != nil {
		return httpError(err)
	}
	m, err := h.svc.Medicine(ctx, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) ListPrescriptions(c echo.Context) error {
	var dispensed *bool
	if v := c.QueryParam("dispensed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid dispensed filter")
		}
		dispensed = &b
	}
	return c.JSON(http.StatusOK, h.svc.ListPrescriptions(c.Request().Context(), dispensed))
}

func (h *Handler) DispensePrescription(c echo.Context) error {
	rx, err := h.svc.DispensePrescription(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rx)
}

// -- Dashboard Handlers --

func (h *Handler) GetSnapshot(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Snapshot(c.Request().Context()))
}

func (h *Handler) GetOverview(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Overview(c.Request().Context()))
}
