// Package seed provides the demo dataset a fresh server starts with. Every
// call returns new slices so callers may mutate the result.
package seed

import (
	"time"

	"github.com/hqrms/hqrms/internal/domain/city"
	"github.com/hqrms/hqrms/internal/domain/hospital"
	"github.com/hqrms/hqrms/internal/domain/session"
	"github.com/hqrms/hqrms/internal/domain/triage"
)

// Hospital returns doctors, beds, medicines and the admitted in-patients.
// Registration times are relative to now.
func Hospital(now time.Time) hospital.Snapshot {
	return hospital.Snapshot{
		Doctors:       Doctors(),
		Beds:          Beds(),
		Medicines:     Medicines(),
		Patients:      Patients(now),
		Prescriptions: []hospital.Prescription{},
	}
}

func Doctors() []hospital.Doctor {
	return []hospital.Doctor{
		{ID: "D001", Name: "Dr. Smith", Specialization: hospital.SpecializationGeneral, Status: hospital.DoctorAvailable, AvgConsultationTime: 15, Queue: []string{}},
		{ID: "D002", Name: "Dr. Johnson", Specialization: "Cardiology", Status: hospital.DoctorAvailable, AvgConsultationTime: 20, Queue: []string{}},
		{ID: "D003", Name: "Dr. Williams", Specialization: "Orthopedics", Status: hospital.DoctorAvailable, AvgConsultationTime: 18, Queue: []string{}},
		{ID: "D004", Name: "Dr. Brown", Specialization: hospital.SpecializationEmergency, Status: hospital.DoctorAvailable, AvgConsultationTime: 12, Queue: []string{}},
		{ID: "D005", Name: "Dr. Davis", Specialization: "Neurology", Status: hospital.DoctorBusy, AvgConsultationTime: 25, Queue: []string{}},
	}
}

func Beds() []hospital.Bed {
	bed := func(id string, t hospital.BedType, s hospital.BedStatus, ward, patient string) hospital.Bed {
		return hospital.Bed{ID: id, Type: t, Status: s, Ward: ward, PatientID: patient}
	}
	const (
		free  = hospital.BedAvailable
		taken = hospital.BedOccupied
	)
	return []hospital.Bed{
		bed("B001", hospital.BedGeneral, free, "Ward A", ""),
		bed("B002", hospital.BedGeneral, taken, "Ward A", "P001"),
		bed("B003", hospital.BedGeneral, free, "Ward A", ""),
		bed("B004", hospital.BedGeneral, taken, "Ward B", "P002"),
		bed("B005", hospital.BedGeneral, free, "Ward B", ""),
		bed("B006", hospital.BedGeneral, hospital.BedMaintenance, "Ward B", ""),
		bed("B007", hospital.BedGeneral, free, "Ward C", ""),
		bed("B008", hospital.BedGeneral, free, "Ward C", ""),

		bed("B009", hospital.BedICU, free, "ICU", ""),
		bed("B010", hospital.BedICU, taken, "ICU", "P003"),
		bed("B011", hospital.BedICU, free, "ICU", ""),
		bed("B012", hospital.BedICU, taken, "ICU", "P004"),

		bed("B013", hospital.BedEmergency, free, "Emergency", ""),
		bed("B014", hospital.BedEmergency, taken, "Emergency", "P005"),
		bed("B015", hospital.BedEmergency, free, "Emergency", ""),
	}
}

func Medicines() []hospital.Medicine {
	return []hospital.Medicine{
		{ID: "M001", Name: "Paracetamol 500mg", Stock: 500, Unit: "tablets", LowStockThreshold: 100},
		{ID: "M002", Name: "Amoxicillin 250mg", Stock: 200, Unit: "capsules", LowStockThreshold: 50},
		{ID: "M003", Name: "Omeprazole 20mg", Stock: 150, Unit: "capsules", LowStockThreshold: 40},
		{ID: "M004", Name: "Cetirizine 10mg", Stock: 300, Unit: "tablets", LowStockThreshold: 60},
		{ID: "M005", Name: "Metformin 500mg", Stock: 80, Unit: "tablets", LowStockThreshold: 100},
		{ID: "M006", Name: "Atorvastatin 10mg", Stock: 45, Unit: "tablets", LowStockThreshold: 50},
		{ID: "M007", Name: "Aspirin 75mg", Stock: 400, Unit: "tablets", LowStockThreshold: 80},
		{ID: "M008", Name: "Ibuprofen 400mg", Stock: 250, Unit: "tablets", LowStockThreshold: 60},
		{ID: "M009", Name: "Azithromycin 500mg", Stock: 30, Unit: "tablets", LowStockThreshold: 40},
		{ID: "M010", Name: "Pantoprazole 40mg", Stock: 180, Unit: "tablets", LowStockThreshold: 45},
	}
}

// Patients returns the in-patients occupying the seeded beds.
func Patients(now time.Time) []hospital.Patient {
	admitted := func(id, name string, age int, gender, mobile, symptoms string, c triage.Classification, ago time.Duration, bed string) hospital.Patient {
		return hospital.Patient{
			ID:             id,
			Name:           name,
			Age:            age,
			Gender:         gender,
			Mobile:         mobile,
			Symptoms:       symptoms,
			Classification: c,
			Status:         hospital.PatientAdmitted,
			RegisteredAt:   now.Add(-ago),
			BedID:          bed,
		}
	}
	return []hospital.Patient{
		admitted("P001", "John Doe", 45, "male", "555-0101", "Fever, headache", triage.General, 24*time.Hour, "B002"),
		admitted("P002", "Jane Smith", 62, "female", "555-0102", "Chest pain, shortness of breath", triage.Specialist, 48*time.Hour, "B004"),
		admitted("P003", "Robert Wilson", 70, "male", "555-0103", "Severe cardiac arrest recovery", triage.Emergency, 72*time.Hour, "B010"),
		admitted("P004", "Mary Johnson", 55, "female", "555-0104", "Post-surgery monitoring", triage.Specialist, 96*time.Hour, "B012"),
		admitted("P005", "James Brown", 30, "male", "555-0105", "Trauma from accident", triage.Emergency, 12*time.Hour, "B014"),
	}
}

// Users returns one staff identity per role.
func Users() []session.User {
	return []session.User{
		{ID: "U001", Name: "Dr. Admin", Role: session.RoleAdmin},
		{ID: "U002", Name: "Sarah (Reception)", Role: session.RoleReception},
		{ID: "U003", Name: "Dr. Smith", Role: session.RoleDoctor, Department: hospital.SpecializationGeneral},
		{ID: "U004", Name: "Mike (Pharmacy)", Role: session.RolePharmacy},
		{ID: "U005", Name: "City Health Officer", Role: session.RoleCity},
	}
}

// CityHospitals returns the summaries shown on the city dashboard.
func CityHospitals() []city.Hospital {
	return []city.Hospital{
		{ID: "H001", Name: "HQRMS Central Hospital", AvailableBeds: 6, TotalBeds: 15, ICUAvailable: 2, ICUTotal: 4, OPDLoad: city.LoadMedium, EmergencyCapacity: 67},
		{ID: "H002", Name: "City General Hospital", AvailableBeds: 12, TotalBeds: 30, ICUAvailable: 4, ICUTotal: 8, OPDLoad: city.LoadLow, EmergencyCapacity: 80},
		{ID: "H003", Name: "Metro Care Medical Center", AvailableBeds: 2, TotalBeds: 25, ICUAvailable: 0, ICUTotal: 6, OPDLoad: city.LoadHigh, EmergencyCapacity: 15},
		{ID: "H004", Name: "Sunrise Hospital", AvailableBeds: 8, TotalBeds: 20, ICUAvailable: 3, ICUTotal: 5, OPDLoad: city.LoadLow, EmergencyCapacity: 90},
		{ID: "H005", Name: "Unity Medical Center", AvailableBeds: 0, TotalBeds: 18, ICUAvailable: 1, ICUTotal: 4, OPDLoad: city.LoadHigh, EmergencyCapacity: 25},
	}
}
