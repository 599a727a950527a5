package city

import (
	"context"
	"math"

	"github.com/rs/zerolog"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "city").Logger()}
}

func (s *Service) ListHospitals(ctx context.Context) ([]Hospital, error) {
	return s.repo.List(ctx)
}

func (s *Service) GetHospital(ctx context.Context, id string) (*Hospital, error) {
	return s.repo.GetByID(ctx, id)
}

// ReportHospital validates and stores a hospital's latest summary.
func (s *Service) ReportHospital(ctx context.Context, h *Hospital) error {
	if err := h.Validate(); err != nil {
		return err
	}
	if err := s.repo.Upsert(ctx, h); err != nil {
		return err
	}
	s.logger.Info().Str("hospital_id", h.ID).Bool("critical", h.Critical()).Msg("hospital summary reported")
	return nil
}

// Overview aggregates every hospital summary.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	hs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return Summarize(hs), nil
}

// Summarize computes city-wide totals. Percentages are rounded to whole
// numbers and are 0 when the denominator is 0.
func Summarize(hs []Hospital) *Overview {
	ov := &Overview{
		Hospitals:         make([]HospitalView, 0, len(hs)),
		CriticalHospitals: []string{},
	}
	var emergencySum int
	for _, h := range hs {
		ov.TotalBeds += h.TotalBeds
		ov.AvailableBeds += h.AvailableBeds
		ov.TotalICU += h.ICUTotal
		ov.AvailableICU += h.ICUAvailable
		emergencySum += h.EmergencyCapacity
		if h.Critical() {
			ov.CriticalHospitals = append(ov.CriticalHospitals, h.ID)
		}
		ov.Hospitals = append(ov.Hospitals, HospitalView{
			Hospital:           h,
			BedAvailabilityPct: percent(h.AvailableBeds, h.TotalBeds),
			ICUAvailabilityPct: percent(h.ICUAvailable, h.ICUTotal),
			Critical:           h.Critical(),
		})
	}
	ov.BedAvailabilityPct = percent(ov.AvailableBeds, ov.TotalBeds)
	ov.ICUAvailabilityPct = percent(ov.AvailableICU, ov.TotalICU)
	if len(hs) > 0 {
		ov.AverageEmergencyCapacity = int(math.Round(float64(emergencySum) / float64(len(hs))))
	}
	return ov
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) * 100 / float64(total)))
}
