package hospital

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

var (
	ctx      = context.Background()
	fixedNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
)

func fixture() Snapshot {
	return Snapshot{
		Doctors: []Doctor{
			{ID: "D001", Name: "Dr. Asha Rao", Specialization: SpecializationGeneral, Status: DoctorAvailable, AvgConsultationTime: 15},
			{ID: "D002", Name: "Dr. Vikram Shah", Specialization: "Cardiology", Status: DoctorAvailable, AvgConsultationTime: 20},
			{ID: "D003", Name: "Dr. Meera Iyer", Specialization: SpecializationEmergency, Status: DoctorAvailable, AvgConsultationTime: 10},
			{ID: "D004", Name: "Dr. Karan Mehta", Specialization: SpecializationGeneral, Status: DoctorBreak, AvgConsultationTime: 15},
		},
		Beds: []Bed{
			{ID: "B001", Type: BedGeneral, Status: BedAvailable, Ward: "Ward A"},
			{ID: "B002", Type: BedGeneral, Status: BedAvailable, Ward: "Ward A"},
			{ID: "B003", Type: BedICU, Status: BedMaintenance, Ward: "ICU"},
			{ID: "B004", Type: BedICU, Status: BedAvailable, Ward: "ICU"},
			{ID: "B005", Type: BedEmergency, Status: BedAvailable, Ward: "ER"},
		},
		Medicines: []Medicine{
			{ID: "M001", Name: "Paracetamol 500mg", Stock: 100, Unit: "tablets", LowStockThreshold: 20},
			{ID: "M002", Name: "Amoxicillin 250mg", Stock: 5, Unit: "capsules", LowStockThreshold: 10},
		},
	}
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recordingNotifier) Notify(_ context.Context, c Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recordingNotifier) last() (Change, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.changes) == 0 {
		return Change{}, false
	}
	return r.changes[len(r.changes)-1], true
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes)
}

func newTestService(t *testing.T) (*Service, *recordingNotifier) {
	t.Helper()
	return newTestServiceFrom(t, fixture())
}

func newTestServiceFrom(t *testing.T, snap Snapshot) (*Service, *recordingNotifier) {
	t.Helper()
	svc := NewService(NewStore(snap), zerolog.Nop())
	svc.now = func() time.Time { return fixedNow }
	n := &recordingNotifier{}
	svc.SetNotifier(n)
	return svc, n
}

func register(t *testing.T, svc *Service, name, symptoms string, age int) *Patient {
	t.Helper()
	p, err := svc.RegisterPatient(ctx, Registration{Name: name, Age: age, Symptoms: symptoms})
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return p
}

func mustPatient(t *testing.T, svc *Service, id string) Patient {
	t.Helper()
	p, ok := svc.Store().Patient(id)
	if !ok {
		t.Fatalf("patient %s not found", id)
	}
	return p
}

func mustDoctor(t *testing.T, svc *Service, id string) Doctor {
	t.Helper()
	d, ok := svc.Store().Doctor(id)
	if !ok {
		t.Fatalf("doctor %s not found", id)
	}
	return d
}

func mustBed(t *testing.T, svc *Service, id string) Bed {
	t.Helper()
	b, ok := svc.Store().Bed(id)
	if !ok {
		t.Fatalf("bed %s not found", id)
	}
	return b
}
