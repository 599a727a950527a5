package city

import (
	"errors"
	"fmt"
	"time"
)

// Load is a hospital's outpatient load band.
type Load string

const (
	LoadLow    Load = "low"
	LoadMedium Load = "medium"
	LoadHigh   Load = "high"
)

func (l Load) Valid() bool {
	switch l {
	case LoadLow, LoadMedium, LoadHigh:
		return true
	}
	return false
}

// CriticalEmergencyCapacity is the emergency capacity, in percent, below
// which a hospital is flagged.
const CriticalEmergencyCapacity = 30

var (
	ErrHospitalNotFound = errors.New("hospital not found")
	ErrInvalidHospital  = errors.New("invalid hospital summary")
)

// Hospital is the capacity summary one hospital reports to the city.
type Hospital struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	AvailableBeds     int       `json:"available_beds"`
	TotalBeds         int       `json:"total_beds"`
	ICUAvailable      int       `json:"icu_available"`
	ICUTotal          int       `json:"icu_total"`
	OPDLoad           Load      `json:"opd_load"`
	EmergencyCapacity int       `json:"emergency_capacity"`
	UpdatedAt         time.Time `json:"updated_at,omitempty"`
}

// Critical reports a hospital at high load or short on emergency capacity.
func (h Hospital) Critical() bool {
	return h.OPDLoad == LoadHigh || h.EmergencyCapacity < CriticalEmergencyCapacity
}

// Validate checks the counters are consistent.
func (h Hospital) Validate() error {
	switch {
	case h.ID == "" || h.Name == "":
		return fmt.Errorf("%w: id and name are required", ErrInvalidHospital)
	case h.AvailableBeds < 0 || h.TotalBeds < 0 || h.AvailableBeds > h.TotalBeds:
		return fmt.Errorf("%w: beds %d/%d", ErrInvalidHospital, h.AvailableBeds, h.TotalBeds)
	case h.ICUAvailable < 0 || h.ICUTotal < 0 || h.ICUAvailable > h.ICUTotal:
		return fmt.Errorf("%w: icu %d/%d", ErrInvalidHospital, h.ICUAvailable, h.ICUTotal)
	case !h.OPDLoad.Valid():
		return fmt.Errorf("%w: opd load %q", ErrInvalidHospital, h.OPDLoad)
	case h.EmergencyCapacity < 0 || h.EmergencyCapacity > 100:
		return fmt.Errorf("%w: emergency capacity %d", ErrInvalidHospital, h.EmergencyCapacity)
	}
	return nil
}

// HospitalView adds derived percentages to a summary.
type HospitalView struct {
	Hospital
	BedAvailabilityPct int  `json:"bed_availability_pct"`
	ICUAvailabilityPct int  `json:"icu_availability_pct"`
	Critical           bool `json:"critical"`
}

// Overview aggregates every reporting hospital.
type Overview struct {
	Hospitals                []HospitalView `json:"hospitals"`
	TotalBeds                int            `json:"total_beds"`
	AvailableBeds            int            `json:"available_beds"`
	BedAvailabilityPct       int            `json:"bed_availability_pct"`
	TotalICU                 int            `json:"total_icu"`
	AvailableICU             int            `json:"available_icu"`
	ICUAvailabilityPct       int            `json:"icu_availability_pct"`
	AverageEmergencyCapacity int            `json:"average_emergency_capacity"`
	CriticalHospitals        []string       `json:"critical_hospitals"`
}
