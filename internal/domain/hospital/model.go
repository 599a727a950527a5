package hospital

import (
	"time"

	"github.com/hqrms/hqrms/internal/domain/triage"
)

// PatientStatus is the patient lifecycle state.
type PatientStatus string

const (
	PatientRegistered     PatientStatus = "registered"
	PatientWaiting        PatientStatus = "waiting"
	PatientInConsultation PatientStatus = "in-consultation"
	PatientAdmitted       PatientStatus = "admitted"
	PatientDischarged     PatientStatus = "discharged"
	PatientPharmacy       PatientStatus = "pharmacy"
	PatientReferred       PatientStatus = "referred"
)

// Disposition records the follow-up a consultation left pending.
type Disposition string

const (
	DispositionNone  Disposition = ""
	DispositionAdmit Disposition = "admit"
	DispositionRefer Disposition = "refer"
)

// DoctorStatus is a doctor's availability.
type DoctorStatus string

const (
	DoctorAvailable DoctorStatus = "available"
	DoctorBusy      DoctorStatus = "busy"
	DoctorBreak     DoctorStatus = "break"
	DoctorOffline   DoctorStatus = "offline"
)

func (s DoctorStatus) Valid() bool {
	switch s {
	case DoctorAvailable, DoctorBusy, DoctorBreak, DoctorOffline:
		return true
	}
	return false
}

// BedType is fixed per bed.
type BedType string

const (
	BedGeneral   BedType = "general"
	BedICU       BedType = "icu"
	BedEmergency BedType = "emergency"
)

func (t BedType) Valid() bool {
	switch t {
	case BedGeneral, BedICU, BedEmergency:
		return true
	}
	return false
}

// BedStatus is a bed's occupancy state.
type BedStatus string

const (
	BedAvailable   BedStatus = "available"
	BedOccupied    BedStatus = "occupied"
	BedMaintenance BedStatus = "maintenance"
)

func (s BedStatus) Valid() bool {
	switch s {
	case BedAvailable, BedOccupied, BedMaintenance:
		return true
	}
	return false
}

// Action is the outcome a doctor picks when closing a consultation.
type Action string

const (
	ActionPrescribe Action = "prescribe"
	ActionRefer     Action = "refer"
	ActionAdmit     Action = "admit"
)

func (a Action) Valid() bool {
	switch a {
	case ActionPrescribe, ActionRefer, ActionAdmit:
		return true
	}
	return false
}

// Specializations with routing meaning. Any other label counts as a
// specialist department.
const (
	SpecializationGeneral   = "General Medicine"
	SpecializationEmergency = "Emergency"
)

// Patient is a registered person moving through the hospital.
type Patient struct {
	ID                 string                `json:"id"`
	Name               string                `json:"name"`
	Age                int                   `json:"age"`
	Gender             string                `json:"gender"`
	Mobile             string                `json:"mobile"`
	Symptoms           string                `json:"symptoms"`
	Classification     triage.Classification `json:"classification"`
	Status             PatientStatus         `json:"status"`
	RegisteredAt       time.Time             `json:"registered_at"`
	AssignedDoctor     string                `json:"assigned_doctor,omitempty"`
	TokenNumber        int                   `json:"token_number,omitempty"`
	BedID              string                `json:"bed_id,omitempty"`
	PrescriptionID     string                `json:"prescription_id,omitempty"`
	PendingDisposition Disposition           `json:"pending_disposition,omitempty"`
}

// Doctor sees patients from a FIFO queue.
type Doctor struct {
	ID                  string       `json:"id"`
	Name                string       `json:"name"`
	Specialization      string       `json:"specialization"`
	Status              DoctorStatus `json:"status"`
	AvgConsultationTime int          `json:"avg_consultation_time"`
	Queue               []string     `json:"queue"`
	CurrentPatientID    string       `json:"current_patient_id,omitempty"`
}

// Bed is a physical bed in a ward.
type Bed struct {
	ID        string    `json:"id"`
	Type      BedType   `json:"type"`
	Status    BedStatus `json:"status"`
	Ward      string    `json:"ward"`
	PatientID string    `json:"patient_id,omitempty"`
}

// Medicine is a pharmacy stock line.
type Medicine struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Stock             int    `json:"stock"`
	Unit              string `json:"unit"`
	LowStockThreshold int    `json:"low_stock_threshold"`
}

// LowStock reports whether stock is at or below the reorder threshold.
func (m Medicine) LowStock() bool {
	return m.Stock <= m.LowStockThreshold
}

// PrescriptionItem is one medicine line. MedicineName is a snapshot taken at
// issue time.
type PrescriptionItem struct {
	MedicineID   string `json:"medicine_id"`
	MedicineName string `json:"medicine_name"`
	Dosage       string `json:"dosage"`
	Quantity     int    `json:"quantity"`
}

// Prescription is issued by a doctor and dispensed once by the pharmacy.
type Prescription struct {
	ID          string             `json:"id"`
	PatientID   string             `json:"patient_id"`
	DoctorID    string             `json:"doctor_id"`
	Items       []PrescriptionItem `json:"items"`
	IssuedAt    time.Time          `json:"issued_at"`
	Dispensed   bool               `json:"dispensed"`
	DispensedAt *time.Time         `json:"dispensed_at,omitempty"`
}

// Registration carries the demographic and intake fields from reception.
type Registration struct {
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Gender   string `json:"gender"`
	Mobile   string `json:"mobile"`
	Symptoms string `json:"symptoms"`
}

// ItemRequest is a prescription line as submitted by a doctor.
type ItemRequest struct {
	MedicineID string `json:"medicine_id"`
	Dosage     string `json:"dosage"`
	Quantity   int    `json:"quantity"`
}

// NewMedicine is the input for adding a stock line.
type NewMedicine struct {
	Name              string `json:"name"`
	Stock             int    `json:"stock"`
	Unit              string `json:"unit"`
	LowStockThreshold int    `json:"low_stock_threshold"`
}
