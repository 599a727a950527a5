package hospital

import "errors"

// Not-found errors.
var (
	ErrPatientNotFound      = errors.New("patient not found")
	ErrDoctorNotFound       = errors.New("doctor not found")
	ErrBedNotFound          = errors.New("bed not found")
	ErrMedicineNotFound     = errors.New("medicine not found")
	ErrPrescriptionNotFound = errors.New("prescription not found")
)

// Unavailable-resource and state-conflict errors.
var (
	ErrNoBedAvailable        = errors.New("no bed of the requested type is available")
	ErrNoActiveConsultation  = errors.New("doctor has no patient in consultation")
	ErrDoctorInConsultation  = errors.New("doctor is already in a consultation")
	ErrPatientInConsultation = errors.New("patient is currently in consultation")
	ErrAlreadyDispensed      = errors.New("prescription already dispensed")
	ErrBedOccupied           = errors.New("bed is occupied")
	ErrInvalidTransition     = errors.New("invalid status transition")
)

// Validation errors.
var (
	ErrInvalidAction       = errors.New("invalid consultation action")
	ErrInvalidBedType      = errors.New("invalid bed type")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrEmptyPrescription   = errors.New("prescription must contain at least one item")
	ErrInvalidQuantity     = errors.New("quantity must be greater than zero")
	ErrInvalidStock        = errors.New("stock and threshold must not be negative")
	ErrInvalidRegistration = errors.New("invalid registration")
	ErrInvalidMedicine     = errors.New("invalid medicine")
)
