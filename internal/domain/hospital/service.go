package hospital

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hqrms/hqrms/internal/domain/triage"
)

// Topics name the collections a committed change touched.
const (
	TopicPatients      = "patients"
	TopicDoctors       = "doctors"
	TopicBeds          = "beds"
	TopicMedicines     = "medicines"
	TopicPrescriptions = "prescriptions"
)

// Change describes one committed orchestrator operation.
type Change struct {
	Op     string    `json:"op"`
	Topics []string  `json:"topics"`
	IDs    []string  `json:"ids,omitempty"`
	At     time.Time `json:"at"`
}

// Notifier receives a Change after every successful mutation. Notify must
// not block.
type Notifier interface {
	Notify(ctx context.Context, c Change)
}

// Service is the patient-flow orchestrator. Every operation is a single
// serialized step against the Store; a failing operation changes nothing.
type Service struct {
	store  *Store
	logger zerolog.Logger
	notify Notifier
	now    func() time.Time
}

func NewService(store *Store, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With().Str("component", "orchestrator").Logger(),
		now:    time.Now,
	}
}

// SetNotifier attaches an optional change notifier.
func (s *Service) SetNotifier(n Notifier) {
	s.notify = n
}

// Store returns the underlying entity store.
func (s *Service) Store() *Store {
	return s.store
}

func (s *Service) apply(ctx context.Context, op string, ids []string, fn func(t *tx) error) error {
	var touched int
	err := s.store.update(func(t *tx) error {
		if err := fn(t); err != nil {
			return err
		}
		touched = t.dirty
		return nil
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("op", op).Strs("ids", ids).Msg("operation rejected")
		return err
	}
	if touched != 0 && s.notify != nil {
		s.notify.Notify(ctx, Change{Op: op, Topics: topicsFor(touched), IDs: ids, At: s.now()})
	}
	return nil
}

func topicsFor(dirty int) []string {
	var out []string
	if dirty&dirtyPatients != 0 {
		out = append(out, TopicPatients)
	}
	if dirty&dirtyDoctors != 0 {
		out = append(out, TopicDoctors)
	}
	if dirty&dirtyBeds != 0 {
		out = append(out, TopicBeds)
	}
	if dirty&dirtyMedicines != 0 {
		out = append(out, TopicMedicines)
	}
	if dirty&dirtyPrescriptions != 0 {
		out = append(out, TopicPrescriptions)
	}
	return out
}

// -- Reception --

// RegisterPatient classifies a new patient and queues them with the first
// available doctor whose specialization fits the classification, falling
// back to any available doctor. With no doctor available the patient stays
// registered and must be assigned later.
func (s *Service) RegisterPatient(ctx context.Context, reg Registration) (*Patient, error) {
	if strings.TrimSpace(reg.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRegistration)
	}
	if reg.Age < 0 {
		return nil, fmt.Errorf("%w: age must not be negative", ErrInvalidRegistration)
	}

	var p Patient
	err := s.apply(ctx, "register_patient", nil, func(t *tx) error {
		p = Patient{
			ID:             t.st.seq.patient.NextID(),
			TokenNumber:    t.st.seq.token.Next(),
			Name:           strings.TrimSpace(reg.Name),
			Age:            reg.Age,
			Gender:         reg.Gender,
			Mobile:         reg.Mobile,
			Symptoms:       reg.Symptoms,
			Classification: triage.Classify(reg.Symptoms, reg.Age),
			Status:         PatientRegistered,
			RegisteredAt:   s.now(),
		}
		if doc := pickDoctor(t.st.doctors.items, p.Classification); doc != "" {
			d := t.doctors().ptr(doc)
			d.Queue = append(d.Queue, p.ID)
			p.AssignedDoctor = doc
			p.Status = PatientWaiting
		}
		t.patients().add(p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("patient_id", p.ID).
		Int("token", p.TokenNumber).
		Str("classification", string(p.Classification)).
		Str("doctor_id", p.AssignedDoctor).
		Str("status", string(p.Status)).
		Msg("patient registered")
	return &p, nil
}

// pickDoctor returns the id of the first available doctor matching the
// classification, else the first available doctor, else "".
func pickDoctor(doctors []Doctor, c triage.Classification) string {
	for _, d := range doctors {
		if d.Status == DoctorAvailable && servesClassification(d.Specialization, c) {
			return d.ID
		}
	}
	for _, d := range doctors {
		if d.Status == DoctorAvailable {
			return d.ID
		}
	}
	return ""
}

func servesClassification(specialization string, c triage.Classification) bool {
	switch c {
	case triage.Emergency:
		return specialization == SpecializationEmergency
	case triage.Specialist:
		return specialization != SpecializationGeneral && specialization != SpecializationEmergency
	default:
		return specialization == SpecializationGeneral
	}
}

// AssignDoctorToPatient puts the patient at the tail of the doctor's queue.
// A patient already queued elsewhere is moved; a patient already in this
// doctor's queue keeps their place.
func (s *Service) AssignDoctorToPatient(ctx context.Context, patientID, doctorID string) error {
	return s.apply(ctx, "assign_doctor", []string{patientID, doctorID}, func(t *tx) error {
		p, ok := t.patient(patientID)
		if !ok {
			return ErrPatientNotFound
		}
		d, ok := t.doctor(doctorID)
		if !ok {
			return ErrDoctorNotFound
		}
		switch p.Status {
		case PatientInConsultation:
			return ErrPatientInConsultation
		case PatientAdmitted, PatientDischarged:
			return fmt.Errorf("%w: patient is %s", ErrInvalidTransition, p.Status)
		}
		if d.CurrentPatientID == patientID {
			return ErrPatientInConsultation
		}

		t.removeFromQueues(patientID, doctorID)
		if indexOf(d.Queue, patientID) < 0 {
			w := t.doctors().ptr(doctorID)
			w.Queue = append(w.Queue, patientID)
		}

		wp := t.patients().ptr(patientID)
		wp.AssignedDoctor = doctorID
		wp.Status = PatientWaiting
		wp.PendingDisposition = DispositionNone

		s.logger.Info().Str("patient_id", patientID).Str("doctor_id", doctorID).Msg("patient assigned to doctor")
		return nil
	})
}

// -- Consultation --

// CallNextPatient starts a consultation with the head of the doctor's queue.
// An empty queue yields a nil patient and no change.
func (s *Service) CallNextPatient(ctx context.Context, doctorID string) (*Patient, error) {
	var called *Patient
	err := s.apply(ctx, "call_next_patient", []string{doctorID}, func(t *tx) error {
		d, ok := t.doctor(doctorID)
		if !ok {
			return ErrDoctorNotFound
		}
		if d.CurrentPatientID != "" {
			return ErrDoctorInConsultation
		}
		if len(d.Queue) == 0 {
			return nil
		}

		// Heads that left the waiting state elsewhere are dropped, not seen.
		wd := t.doctors().ptr(doctorID)
		next := ""
		for len(wd.Queue) > 0 && next == "" {
			head := wd.Queue[0]
			wd.Queue = wd.Queue[1:]
			if p, ok := t.patient(head); ok && p.Status == PatientWaiting {
				next = head
			}
		}
		if next == "" {
			return nil
		}
		wd.CurrentPatientID = next
		wd.Status = DoctorBusy

		wp := t.patients().ptr(next)
		wp.Status = PatientInConsultation
		wp.AssignedDoctor = doctorID
		wp.PendingDisposition = DispositionNone

		cp := *wp
		called = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	if called != nil {
		s.logger.Info().Str("doctor_id", doctorID).Str("patient_id", called.ID).Msg("consultation started")
	}
	return called, nil
}

// CompleteConsultation ends the doctor's current consultation. The doctor
// becomes available; the patient moves according to action. The queue is
// not advanced.
func (s *Service) CompleteConsultation(ctx context.Context, doctorID string, action Action) (*Patient, error) {
	if !action.Valid() {
		return nil, ErrInvalidAction
	}

	var out *Patient
	err := s.apply(ctx, "complete_consultation", []string{doctorID}, func(t *tx) error {
		d, ok := t.doctor(doctorID)
		if !ok {
			return ErrDoctorNotFound
		}
		if d.CurrentPatientID == "" {
			return ErrNoActiveConsultation
		}

		wd := t.doctors().ptr(doctorID)
		patientID := wd.CurrentPatientID
		wd.CurrentPatientID = ""
		wd.Status = DoctorAvailable

		wp := t.patients().ptr(patientID)
		if wp == nil {
			return nil
		}
		// A patient admitted, dispensed or otherwise moved during the
		// consultation keeps that status.
		if wp.Status == PatientInConsultation && wp.BedID == "" {
			switch action {
			case ActionPrescribe:
				wp.Status = PatientPharmacy
			case ActionAdmit:
				wp.Status = PatientRegistered
				wp.PendingDisposition = DispositionAdmit
			case ActionRefer:
				wp.Status = PatientReferred
				wp.PendingDisposition = DispositionRefer
			}
		}
		cp := *wp
		out = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	ev := s.logger.Info().Str("doctor_id", doctorID).Str("action", string(action))
	if out != nil {
		ev = ev.Str("patient_id", out.ID).Str("status", string(out.Status))
	}
	ev.Msg("consultation completed")
	return out, nil
}

// UpdateDoctorStatus switches a doctor between available, break and
// offline. Busy is entered only through CallNextPatient.
func (s *Service) UpdateDoctorStatus(ctx context.Context, doctorID string, status DoctorStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	if status == DoctorBusy {
		return fmt.Errorf("%w: busy is set by calling a patient", ErrInvalidTransition)
	}
	return s.apply(ctx, "update_doctor_status", []string{doctorID}, func(t *tx) error {
		d, ok := t.doctor(doctorID)
		if !ok {
			return ErrDoctorNotFound
		}
		if d.CurrentPatientID != "" {
			return ErrDoctorInConsultation
		}
		if d.Status == status {
			return nil
		}
		t.doctors().ptr(doctorID).Status = status
		s.logger.Info().Str("doctor_id", doctorID).Str("status", string(status)).Msg("doctor status changed")
		return nil
	})
}

// -- Beds --

// AdmitPatient places the patient in the first available bed of the given
// type, in collection order.
func (s *Service) AdmitPatient(ctx context.Context, patientID string, bedType BedType) (*Bed, error) {
	if !bedType.Valid() {
		return nil, ErrInvalidBedType
	}

	var chosen Bed
	err := s.apply(ctx, "admit_patient", []string{patientID}, func(t *tx) error {
		p, ok := t.patient(patientID)
		if !ok {
			return ErrPatientNotFound
		}
		switch {
		case p.BedID != "" || p.Status == PatientAdmitted:
			return fmt.Errorf("%w: patient already admitted", ErrInvalidTransition)
		case p.Status == PatientDischarged:
			return fmt.Errorf("%w: patient is discharged", ErrInvalidTransition)
		}

		var found bool
		for _, b := range t.st.beds.items {
			if b.Type == bedType && b.Status == BedAvailable {
				chosen, found = b, true
				break
			}
		}
		if !found {
			return ErrNoBedAvailable
		}

		wb := t.beds().ptr(chosen.ID)
		wb.Status = BedOccupied
		wb.PatientID = patientID
		chosen = *wb

		t.removeFromQueues(patientID, "")
		wp := t.patients().ptr(patientID)
		wp.Status = PatientAdmitted
		wp.BedID = chosen.ID
		wp.PendingDisposition = DispositionNone
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("patient_id", patientID).Str("bed_id", chosen.ID).Str("ward", chosen.Ward).Msg("patient admitted")
	return &chosen, nil
}

// DischargePatient frees the bed and discharges its occupant. A bed with no
// occupant is left as is and nil is returned for the patient.
func (s *Service) DischargePatient(ctx context.Context, bedID string) (*Patient, error) {
	var out *Patient
	err := s.apply(ctx, "discharge_patient", []string{bedID}, func(t *tx) error {
		b, ok := t.bed(bedID)
		if !ok {
			return ErrBedNotFound
		}
		if b.PatientID == "" {
			return nil
		}

		if wp := t.patients().ptr(b.PatientID); wp != nil {
			wp.Status = PatientDischarged
			wp.BedID = ""
			wp.PendingDisposition = DispositionNone
			cp := *wp
			out = &cp
		}

		wb := t.beds().ptr(bedID)
		wb.Status = BedAvailable
		wb.PatientID = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out != nil {
		s.logger.Info().Str("bed_id", bedID).Str("patient_id", out.ID).Msg("patient discharged")
	}
	return out, nil
}

// UpdateBedStatus toggles a free bed between available and maintenance.
// Occupancy is only changed by AdmitPatient and DischargePatient.
func (s *Service) UpdateBedStatus(ctx context.Context, bedID string, status BedStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	if status == BedOccupied {
		return fmt.Errorf("%w: beds are occupied by admitting a patient", ErrInvalidTransition)
	}
	return s.apply(ctx, "update_bed_status", []string{bedID}, func(t *tx) error {
		b, ok := t.bed(bedID)
		if !ok {
			return ErrBedNotFound
		}
		if b.PatientID != "" {
			return ErrBedOccupied
		}
		if b.Status == status {
			return nil
		}
		t.beds().ptr(bedID).Status = status
		s.logger.Info().Str("bed_id", bedID).Str("status", string(status)).Msg("bed status changed")
		return nil
	})
}

// -- Pharmacy --

// CreatePrescription issues a prescription and sends the patient to the
// pharmacy. Stock is not touched until dispensing. Admitted patients keep
// their bed and status.
func (s *Service) CreatePrescription(ctx context.Context, patientID, doctorID string, items []ItemRequest) (*Prescription, error) {
	if len(items) == 0 {
		return nil, ErrEmptyPrescription
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: medicine %s", ErrInvalidQuantity, it.MedicineID)
		}
	}

	var rx Prescription
	err := s.apply(ctx, "create_prescription", []string{patientID, doctorID}, func(t *tx) error {
		p, ok := t.patient(patientID)
		if !ok {
			return ErrPatientNotFound
		}
		if p.Status == PatientDischarged {
			return fmt.Errorf("%w: patient is discharged", ErrInvalidTransition)
		}
		if _, ok := t.doctor(doctorID); !ok {
			return ErrDoctorNotFound
		}

		lines := make([]PrescriptionItem, 0, len(items))
		for _, it := range items {
			m, ok := t.medicine(it.MedicineID)
			if !ok {
				return fmt.Errorf("%w: %s", ErrMedicineNotFound, it.MedicineID)
			}
			lines = append(lines, PrescriptionItem{
				MedicineID:   m.ID,
				MedicineName: m.Name,
				Dosage:       it.Dosage,
				Quantity:     it.Quantity,
			})
		}

		rx = Prescription{
			ID:        t.st.seq.prescription.NextID(),
			PatientID: patientID,
			DoctorID:  doctorID,
			Items:     lines,
			IssuedAt:  s.now(),
		}
		t.prescriptions().add(rx)

		wp := t.patients().ptr(patientID)
		wp.PrescriptionID = rx.ID
		if wp.BedID == "" {
			wp.Status = PatientPharmacy
		}
		t.removeFromQueues(patientID, "")
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("prescription_id", rx.ID).
		Str("patient_id", patientID).
		Str("doctor_id", doctorID).
		Int("items", len(rx.Items)).
		Msg("prescription issued")
	out := clonePrescription(rx)
	return &out, nil
}

// DispensePrescription deducts every item from stock, clamping at zero, and
// discharges the patient unless they hold a bed.
func (s *Service) DispensePrescription(ctx context.Context, prescriptionID string) (*Prescription, error) {
	var rx Prescription
	var clamped []string
	err := s.apply(ctx, "dispense_prescription", []string{prescriptionID}, func(t *tx) error {
		cur, ok := t.prescription(prescriptionID)
		if !ok {
			return ErrPrescriptionNotFound
		}
		if cur.Dispensed {
			return ErrAlreadyDispensed
		}

		for _, it := range cur.Items {
			m := t.medicines().ptr(it.MedicineID)
			if m == nil {
				continue
			}
			if it.Quantity > m.Stock {
				clamped = append(clamped, m.ID)
			}
			m.Stock = max(0, m.Stock-it.Quantity)
		}

		now := s.now()
		w := t.prescriptions().ptr(prescriptionID)
		w.Dispensed = true
		w.DispensedAt = &now
		rx = clonePrescription(*w)

		if wp := t.patients().ptr(cur.PatientID); wp != nil && wp.BedID == "" {
			wp.Status = PatientDischarged
			wp.PendingDisposition = DispositionNone
			t.removeFromQueues(wp.ID, "")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	ev := s.logger.Info().Str("prescription_id", prescriptionID).Str("patient_id", rx.PatientID)
	if len(clamped) > 0 {
		ev = ev.Strs("clamped_stock", clamped)
	}
	ev.Msg("prescription dispensed")
	return &rx, nil
}

// AddMedicine appends a new stock line with a fresh id.
func (s *Service) AddMedicine(ctx context.Context, in NewMedicine) (*Medicine, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidMedicine)
	}
	if in.Stock < 0 || in.LowStockThreshold < 0 {
		return nil, ErrInvalidStock
	}

	var m Medicine
	err := s.apply(ctx, "add_medicine", nil, func(t *tx) error {
		id := t.st.seq.medicine.NextID()
		for {
			if _, taken := t.medicine(id); !taken {
				break
			}
			id = t.st.seq.medicine.NextID()
		}
		m = Medicine{
			ID:                id,
			Name:              strings.TrimSpace(in.Name),
			Stock:             in.Stock,
			Unit:              in.Unit,
			LowStockThreshold: in.LowStockThreshold,
		}
		t.medicines().add(m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("medicine_id", m.ID).Str("name", m.Name).Int("stock", m.Stock).Msg("medicine added")
	return &m, nil
}

// UpdateMedicineStock overwrites the stock level of a medicine.
func (s *Service) UpdateMedicineStock(ctx context.Context, medicineID string, stock int) error {
	if stock < 0 {
		return ErrInvalidStock
	}
	return s.apply(ctx, "update_medicine_stock", []string{medicineID}, func(t *tx) error {
		m, ok := t.medicine(medicineID)
		if !ok {
			return ErrMedicineNotFound
		}
		if m.Stock == stock {
			return nil
		}
		t.medicines().ptr(medicineID).Stock = stock
		s.logger.Info().Str("medicine_id", medicineID).Int("stock", stock).Msg("medicine stock updated")
		return nil
	})
}
