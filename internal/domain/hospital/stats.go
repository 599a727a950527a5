package hospital

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/hqrms/hqrms/internal/domain/triage"
)

// Snapshot returns a deep copy of every collection.
func (s *Service) Snapshot(_ context.Context) Snapshot {
	return s.store.Snapshot()
}

func (s *Service) Patient(_ context.Context, id string) (*Patient, error) {
	p, ok := s.store.Patient(id)
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (s *Service) Doctor(_ context.Context, id string) (*Doctor, error) {
	d, ok := s.store.Doctor(id)
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return &d, nil
}

func (s *Service) Bed(_ context.Context, id string) (*Bed, error) {
	b, ok := s.store.Bed(id)
	if !ok {
		return nil, ErrBedNotFound
	}
	return &b, nil
}

func (s *Service) Medicine(_ context.Context, id string) (*Medicine, error) {
	m, ok := s.store.Medicine(id)
	if !ok {
		return nil, ErrMedicineNotFound
	}
	return &m, nil
}

func (s *Service) Prescription(_ context.Context, id string) (*Prescription, error) {
	rx, ok := s.store.Prescription(id)
	if !ok {
		return nil, ErrPrescriptionNotFound
	}
	return &rx, nil
}

// PatientFilter narrows ListPatients. Zero fields match everything.
type PatientFilter struct {
	Status         PatientStatus
	Classification triage.Classification
	DoctorID       string
	Query          string
}

func (f PatientFilter) match(p Patient) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.Classification != "" && p.Classification != f.Classification {
		return false
	}
	if f.DoctorID != "" && p.AssignedDoctor != f.DoctorID {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(p.Mobile, f.Query) &&
			!strings.EqualFold(p.ID, f.Query) {
			return false
		}
	}
	return true
}

// ListPatients returns one page of matching patients in registration order
// and the total number of matches.
func (s *Service) ListPatients(_ context.Context, f PatientFilter, limit, offset int) ([]Patient, int) {
	all := s.store.Patients(f.match)
	return page(all, limit, offset), len(all)
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

// ListDoctors returns every doctor, optionally limited to one specialization.
func (s *Service) ListDoctors(_ context.Context, specialization string) []Doctor {
	return s.store.Doctors(func(d Doctor) bool {
		return specialization == "" || strings.EqualFold(d.Specialization, specialization)
	})
}

// ListBeds returns beds filtered by type and status; empty values match all.
func (s *Service) ListBeds(_ context.Context, bedType BedType, status BedStatus) []Bed {
	return s.store.Beds(func(b Bed) bool {
		return (bedType == "" || b.Type == bedType) && (status == "" || b.Status == status)
	})
}

// SearchMedicines returns medicines whose name contains query, case-insensitively.
func (s *Service) SearchMedicines(_ context.Context, query string) []Medicine {
	q := strings.ToLower(strings.TrimSpace(query))
	return s.store.Medicines(func(m Medicine) bool {
		return q == "" || strings.Contains(strings.ToLower(m.Name), q)
	})
}

// LowStockMedicines returns medicines at or below their reorder threshold.
func (s *Service) LowStockMedicines(_ context.Context) []Medicine {
	return s.store.Medicines(Medicine.LowStock)
}

// PendingPrescriptions returns undispensed prescriptions, oldest first.
func (s *Service) PendingPrescriptions(_ context.Context) []Prescription {
	return s.store.Prescriptions(func(rx Prescription) bool { return !rx.Dispensed })
}

// ListPrescriptions returns every prescription, optionally filtered by
// dispensed state.
func (s *Service) ListPrescriptions(_ context.Context, dispensed *bool) []Prescription {
	return s.store.Prescriptions(func(rx Prescription) bool {
		return dispensed == nil || rx.Dispensed == *dispensed
	})
}

// -- Waiting --

// QueuePosition returns the patient's 1-based place in their doctor's
// queue, 0 when they are not queued, or triage.WaitUnknown when no known
// doctor is assigned.
func (s *Service) QueuePosition(_ context.Context, patientID string) (int, error) {
	st := s.store.view()
	p, ok := st.patients.get(patientID)
	if !ok {
		return 0, ErrPatientNotFound
	}
	d, ok := st.doctors.get(p.AssignedDoctor)
	if !ok {
		return triage.WaitUnknown, nil
	}
	return indexOf(d.Queue, patientID) + 1, nil
}

// WaitingTime estimates minutes until the patient is seen. It returns
// triage.WaitUnknown when no doctor is assigned and 0 when the patient is
// not queued.
func (s *Service) WaitingTime(_ context.Context, patientID string) (int, error) {
	st := s.store.view()
	p, ok := st.patients.get(patientID)
	if !ok {
		return 0, ErrPatientNotFound
	}
	return waitFor(st, p), nil
}

func waitFor(st *state, p Patient) int {
	d, ok := st.doctors.get(p.AssignedDoctor)
	if !ok {
		return triage.WaitUnknown
	}
	ahead := indexOf(d.Queue, p.ID)
	if ahead < 0 {
		return 0
	}
	return triage.EstimateWait(ahead, d.AvgConsultationTime, max(1, availableIn(st, d.Specialization)))
}

func availableIn(st *state, specialization string) int {
	n := 0
	for _, d := range st.doctors.items {
		if d.Specialization == specialization && d.Status == DoctorAvailable {
			n++
		}
	}
	return n
}

// QueueEntry is one waiting patient as shown on a doctor's board.
type QueueEntry struct {
	Patient     Patient `json:"patient"`
	Position    int     `json:"position"`
	WaitMinutes int     `json:"wait_minutes"`
}

// QueueView is a doctor's current consultation plus their FIFO queue.
type QueueView struct {
	Doctor  Doctor       `json:"doctor"`
	Current *Patient     `json:"current,omitempty"`
	Waiting []QueueEntry `json:"waiting"`
}

// DoctorQueue assembles the doctor's board from a single committed state.
func (s *Service) DoctorQueue(_ context.Context, doctorID string) (*QueueView, error) {
	st := s.store.view()
	d, ok := st.doctors.get(doctorID)
	if !ok {
		return nil, ErrDoctorNotFound
	}
	v := &QueueView{Doctor: cloneDoctor(d), Waiting: make([]QueueEntry, 0, len(d.Queue))}
	if cur, ok := st.patients.get(d.CurrentPatientID); ok {
		v.Current = &cur
	}
	for i, id := range d.Queue {
		p, ok := st.patients.get(id)
		if !ok {
			continue
		}
		v.Waiting = append(v.Waiting, QueueEntry{Patient: p, Position: i + 1, WaitMinutes: waitFor(st, p)})
	}
	return v, nil
}

// -- Overview --

// BedUsage counts beds of one type.
type BedUsage struct {
	Total       int `json:"total"`
	Available   int `json:"available"`
	Occupied    int `json:"occupied"`
	Maintenance int `json:"maintenance"`
	// UtilizationPct is occupied beds over total, rounded.
	UtilizationPct int `json:"utilization_pct"`
}

// Overview holds the headline counters shown on the staff dashboards.
type Overview struct {
	Beds                   map[BedType]BedUsage `json:"beds"`
	TotalBeds              BedUsage             `json:"total_beds"`
	PatientsWaiting        int                  `json:"patients_waiting"`
	PatientsInConsultation int                  `json:"patients_in_consultation"`
	PatientsAdmitted       int                  `json:"patients_admitted"`
	PatientsAtPharmacy     int                  `json:"patients_at_pharmacy"`
	RegisteredToday        int                  `json:"registered_today"`
	EmergencyActive        int                  `json:"emergency_active"`
	DoctorsOnDuty          int                  `json:"doctors_on_duty"`
	DoctorsAvailable       int                  `json:"doctors_available"`
	AverageWaitMinutes     int                  `json:"average_wait_minutes"`
	LowStockMedicines      int                  `json:"low_stock_medicines"`
	PendingPrescriptions   int                  `json:"pending_prescriptions"`
	DispensedToday         int                  `json:"dispensed_today"`
	GeneratedAt            time.Time            `json:"generated_at"`
}

// Overview computes dashboard counters from one committed state. "Today"
// is the calendar day of the service clock in its local zone.
func (s *Service) Overview(_ context.Context) Overview {
	st := s.store.view()
	now := s.now()
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	ov := Overview{Beds: make(map[BedType]BedUsage, 3), GeneratedAt: now}
	for _, t := range []BedType{BedGeneral, BedICU, BedEmergency} {
		ov.Beds[t] = BedUsage{}
	}
	for _, b := range st.beds.items {
		u := ov.Beds[b.Type]
		countBed(&u, b)
		ov.Beds[b.Type] = u
		countBed(&ov.TotalBeds, b)
	}
	for t, u := range ov.Beds {
		u.UtilizationPct = percent(u.Occupied, u.Total)
		ov.Beds[t] = u
	}
	ov.TotalBeds.UtilizationPct = percent(ov.TotalBeds.Occupied, ov.TotalBeds.Total)

	var waitSum, waitN int
	for _, p := range st.patients.items {
		switch p.Status {
		case PatientWaiting:
			ov.PatientsWaiting++
			if w := waitFor(st, p); w >= 0 {
				waitSum += w
				waitN++
			}
		case PatientInConsultation:
			ov.PatientsInConsultation++
		case PatientAdmitted:
			ov.PatientsAdmitted++
		case PatientPharmacy:
			ov.PatientsAtPharmacy++
		}
		if !p.RegisteredAt.Before(midnight) {
			ov.RegisteredToday++
		}
		if p.Classification == triage.Emergency && p.Status != PatientDischarged {
			ov.EmergencyActive++
		}
	}
	if waitN > 0 {
		ov.AverageWaitMinutes = int(math.Round(float64(waitSum) / float64(waitN)))
	}

	for _, doc := range st.doctors.items {
		if doc.Status != DoctorOffline {
			ov.DoctorsOnDuty++
		}
		if doc.Status == DoctorAvailable {
			ov.DoctorsAvailable++
		}
	}
	for _, med := range st.medicines.items {
		if med.LowStock() {
			ov.LowStockMedicines++
		}
	}
	for _, rx := range st.prescriptions.items {
		if !rx.Dispensed {
			ov.PendingPrescriptions++
		} else if rx.DispensedAt != nil && !rx.DispensedAt.Before(midnight) {
			ov.DispensedToday++
		}
	}
	return ov
}

func countBed(u *BedUsage, b Bed) {
	u.Total++
	switch b.Status {
	case BedAvailable:
		u.Available++
	case BedOccupied:
		u.Occupied++
	case BedMaintenance:
		u.Maintenance++
	}
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) * 100 / float64(total)))
}
