package hospital

import (
	"errors"
	"sync"
	"testing"

	"github.com/hqrms/hqrms/internal/domain/triage"
)

func TestRegisterPatient_RoutesByClassification(t *testing.T) {
	tests := []struct {
		name     string
		symptoms string
		age      int
		class    triage.Classification
		doctor   string
	}{
		{"general", "fever", 30, triage.General, "D001"},
		{"emergency", "chest pain", 40, triage.Emergency, "D003"},
		{"specialist keyword", "diabetes follow-up", 50, triage.Specialist, "D002"},
		{"specialist by age", "cough", 70, triage.Specialist, "D002"},
		{"emergency wins over specialist", "severe chronic chest pain", 40, triage.Emergency, "D003"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			p := register(t, svc, "Ravi Kumar", tt.symptoms, tt.age)
			if p.Classification != tt.class {
				t.Errorf("classification = %s, want %s", p.Classification, tt.class)
			}
			if p.AssignedDoctor != tt.doctor || p.Status != PatientWaiting {
				t.Errorf("got doctor=%q status=%s, want %s/waiting", p.AssignedDoctor, p.Status, tt.doctor)
			}
			if d := mustDoctor(t, svc, tt.doctor); len(d.Queue) != 1 || d.Queue[0] != p.ID {
				t.Errorf("doctor queue = %v", d.Queue)
			}
		})
	}
}

func TestRegisterPatient_FallsBackToAnyAvailableDoctor(t *testing.T) {
	svc, _ := newTestService(t)
	if err := svc.UpdateDoctorStatus(ctx, "D003", DoctorOffline); err != nil {
		t.Fatal(err)
	}
	p := register(t, svc, "Anil", "accident", 35)
	if p.Classification != triage.Emergency || p.AssignedDoctor != "D001" {
		t.Errorf("expected emergency routed to D001, got %s/%s", p.Classification, p.AssignedDoctor)
	}
}

func TestRegisterPatient_NoDoctorAvailable(t *testing.T) {
	svc, _ := newTestService(t)
	for _, id := range []string{"D001", "D002", "D003"} {
		if err := svc.UpdateDoctorStatus(ctx, id, DoctorOffline); err != nil {
			t.Fatal(err)
		}
	}

	p := register(t, svc, "Sita", "fever", 25)
	if p.Status != PatientRegistered || p.AssignedDoctor != "" {
		t.Fatalf("expected unassigned registered patient, got %s/%q", p.Status, p.AssignedDoctor)
	}
	wait, err := svc.WaitingTime(ctx, p.ID)
	if err != nil || wait != triage.WaitUnknown {
		t.Errorf("WaitingTime = %d, %v; want unknown", wait, err)
	}
	if pos, err := svc.QueuePosition(ctx, p.ID); err != nil || pos != triage.WaitUnknown {
		t.Errorf("QueuePosition = %d, %v; want unknown", pos, err)
	}
}

func TestRegisterPatient_Validation(t *testing.T) {
	svc, n := newTestService(t)
	if _, err := svc.RegisterPatient(ctx, Registration{Name: "  ", Symptoms: "fever"}); !errors.Is(err, ErrInvalidRegistration) {
		t.Errorf("blank name: got %v", err)
	}
	if _, err := svc.RegisterPatient(ctx, Registration{Name: "X", Age: -1}); !errors.Is(err, ErrInvalidRegistration) {
		t.Errorf("negative age: got %v", err)
	}
	if n.count() != 0 {
		t.Error("rejected registration produced a change")
	}
	// Rejected calls do not consume ids.
	if p := register(t, svc, "Ok", "fever", 20); p.ID != "P1001" || p.TokenNumber != 101 {
		t.Errorf("expected P1001/101, got %s/%d", p.ID, p.TokenNumber)
	}
}

func TestRegisterPatient_IDsAndTokensStrictlyIncrease(t *testing.T) {
	svc, _ := newTestService(t)
	var prev *Patient
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		p := register(t, svc, "Patient", "fever", 30)
		if seen[p.ID] {
			t.Fatalf("duplicate id %s", p.ID)
		}
		seen[p.ID] = true
		if prev != nil && (p.ID <= prev.ID || p.TokenNumber <= prev.TokenNumber) {
			t.Fatalf("not increasing: %s/%d after %s/%d", p.ID, p.TokenNumber, prev.ID, prev.TokenNumber)
		}
		prev = p
	}
	if prev.ID != "P1005" || prev.TokenNumber != 105 {
		t.Errorf("expected last P1005/105, got %s/%d", prev.ID, prev.TokenNumber)
	}
}

func TestRegisterPatient_ConcurrentTokensAreUnique(t *testing.T) {
	svc, _ := newTestService(t)
	const n = 50
	tokens := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := svc.RegisterPatient(ctx, Registration{Name: "P", Age: 30, Symptoms: "fever"})
			if err != nil {
				t.Error(err)
				return
			}
			tokens <- p.TokenNumber
		}()
	}
	wg.Wait()
	close(tokens)

	seen := map[int]bool{}
	for tok := range tokens {
		if seen[tok] {
			t.Fatalf("duplicate token %d", tok)
		}
		seen[tok] = true
	}
	if len(seen) != n {
		t.Errorf("expected %d tokens, got %d", n, len(seen))
	}
}

func TestCallNextPatient_FIFO(t *testing.T) {
	svc, _ := newTestService(t)
	a := register(t, svc, "A", "fever", 30)
	b := register(t, svc, "B", "fever", 30)

	got, err := svc.CallNextPatient(ctx, "D001")
	if err != nil || got == nil || got.ID != a.ID {
		t.Fatalf("first call = %v, %v; want %s", got, err, a.ID)
	}
	if _, err := svc.CompleteConsultation(ctx, "D001", ActionPrescribe); err != nil {
		t.Fatal(err)
	}
	got, err = svc.CallNextPatient(ctx, "D001")
	if err != nil || got == nil || got.ID != b.ID {
		t.Fatalf("second call = %v, %v; want %s", got, err, b.ID)
	}
}

func TestCallNextPatient_Errors(t *testing.T) {
	svc, n := newTestService(t)

	p, err := svc.CallNextPatient(ctx, "D002")
	if err != nil || p != nil {
		t.Errorf("empty queue: got %v, %v", p, err)
	}
	if n.count() != 0 {
		t.Error("empty queue produced a change")
	}
	if _, err := svc.CallNextPatient(ctx, "D999"); !errors.Is(err, ErrDoctorNotFound) {
		t.Errorf("unknown doctor: got %v", err)
	}

	register(t, svc, "A", "fever", 30)
	register(t, svc, "B", "fever", 30)
	if _, err := svc.CallNextPatient(ctx, "D001"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CallNextPatient(ctx, "D001"); !errors.Is(err, ErrDoctorInConsultation) {
		t.Errorf("second call while consulting: got %v", err)
	}
	if d := mustDoctor(t, svc, "D001"); len(d.Queue) != 1 {
		t.Errorf("rejected call changed the queue: %v", d.Queue)
	}
}

func TestCompleteConsultation_Actions(t *testing.T) {
	tests := []struct {
		action      Action
		status      PatientStatus
		disposition Disposition
	}{
		{ActionPrescribe, PatientPharmacy, DispositionNone},
		{ActionAdmit, PatientRegistered, DispositionAdmit},
		{ActionRefer, PatientReferred, DispositionRefer},
	}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			svc, _ := newTestService(t)
			p := register(t, svc, "A", "fever", 30)
			if _, err := svc.CallNextPatient(ctx, "D001"); err != nil {
				t.Fatal(err)
			}
			out, err := svc.CompleteConsultation(ctx, "D001", tt.action)
			if err != nil {
				t.Fatal(err)
			}
			if out.ID != p.ID || out.Status != tt.status || out.PendingDisposition != tt.disposition {
				t.Errorf("got %s/%s/%q", out.ID, out.Status, out.PendingDisposition)
			}
			d := mustDoctor(t, svc, "D001")
			if d.Status != DoctorAvailable || d.CurrentPatientID != "" {
				t.Errorf("doctor not released: %+v", d)
			}
		})
	}
}

func TestCompleteConsultation_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.CompleteConsultation(ctx, "D001", ActionPrescribe); !errors.Is(err, ErrNoActiveConsultation) {
		t.Errorf("no consultation: got %v", err)
	}
	if _, err := svc.CompleteConsultation(ctx, "D001", "discharge"); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("bad action: got %v", err)
	}
	if _, err := svc.CompleteConsultation(ctx, "D999", ActionAdmit); !errors.Is(err, ErrDoctorNotFound) {
		t.Errorf("unknown doctor: got %v", err)
	}
}

func TestCompleteConsultation_DoesNotAdvanceQueue(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "A", "fever", 30)
	b := register(t, svc, "B", "fever", 30)
	if _, err := svc.CallNextPatient(ctx, "D001"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CompleteConsultation(ctx, "D001", ActionPrescribe); err != nil {
		t.Fatal(err)
	}
	if got := mustPatient(t, svc, b.ID); got.Status != PatientWaiting {
		t.Errorf("B status = %s, want waiting", got.Status)
	}
}

func TestAssignDoctorToPatient(t *testing.T) {
	svc, _ := newTestService(t)
	p := register(t, svc, "A", "fever", 30)

	if err := svc.AssignDoctorToPatient(ctx, p.ID, "D002"); err != nil {
		t.Fatal(err)
	}
	if err := svc.AssignDoctorToPatient(ctx, p.ID, "D002"); err != nil {
		t.Fatal(err)
	}
	if d := mustDoctor(t, svc, "D001"); len(d.Queue) != 0 {
		t.Errorf("old queue still holds patient: %v", d.Queue)
	}
	if d := mustDoctor(t, svc, "D002"); len(d.Queue) != 1 || d.Queue[0] != p.ID {
		t.Errorf("new queue = %v", d.Queue)
	}
	if got := mustPatient(t, svc, p.ID); got.AssignedDoctor != "D002" || got.Status != PatientWaiting {
		t.Errorf("patient = %s/%s", got.AssignedDoctor, got.Status)
	}

	if err := svc.AssignDoctorToPatient(ctx, "P0000", "D002"); !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("unknown patient: got %v", err)
	}
	if err := svc.AssignDoctorToPatient(ctx, p.ID, "D999"); !errors.Is(err, ErrDoctorNotFound) {
		t.Errorf("unknown doctor: got %v", err)
	}
}

func TestAssignDoctorToPatient_RejectsActivePatients(t *testing.T) {
	svc, _ := newTestService(t)
	a := register(t, svc, "A", "fever", 30)
	b := register(t, svc, "B", "fever", 30)
	if _, err := svc.CallNextPatient(ctx, "D001"); err != nil {
		t.Fatal(err)
	}
	if err := svc.AssignDoctorToPatient(ctx, a.ID, "D002"); !errors.Is(err, ErrPatientInConsultation) {
		t.Errorf("in consultation: got %v", err)
	}
	if _, err := svc.AdmitPatient(ctx, b.ID, BedGeneral); err != nil {
		t.Fatal(err)
	}
	if err := svc.AssignDoctorToPatient(ctx, b.ID, "D002"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("admitted: got %v", err)
	}
}

func TestUpdateDoctorStatus(t *testing.T) {
	svc, n := newTestService(t)

	if err := svc.UpdateDoctorStatus(ctx, "D004", DoctorAvailable); err != nil {
		t.Fatal(err)
	}
	if d := mustDoctor(t, svc, "D004"); d.Status != DoctorAvailable {
		t.Errorf("status = %s", d.Status)
	}
	before := n.count()
	if err := svc.UpdateDoctorStatus(ctx, "D004", DoctorAvailable); err != nil {
		t.Fatal(err)
	}
	if n.count() != before {
		t.Error("no-op status change produced a change")
	}

	if err := svc.UpdateDoctorStatus(ctx, "D001", DoctorBusy); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("busy: got %v", err)
	}
	if err := svc.UpdateDoctorStatus(ctx, "D001", "sleeping"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("invalid: got %v", err)
	}

	register(t, svc, "A", "fever", 30)
	if _, err := svc.CallNextPatient(ctx, "D001"); err != nil {
		t.Fatal(err)
	}
	if err := svc.UpdateDoctorStatus(ctx, "D001", DoctorBreak); !errors.Is(err, ErrDoctorInConsultation) {
		t.Errorf("during consultation: got %v", err)
	}
}

func TestAdmitAndDischarge_KeepBedAndPatientConsistent(t *testing.T) {
	svc, _ := newTestService(t)
	p := register(t, svc, "A", "fever", 30)

	bed, err := svc.AdmitPatient(ctx, p.ID, BedICU)
	if err != nil {
		t.Fatal(err)
	}
	// B003 is under maintenance.
	if bed.ID != "B004" || bed.Status != BedOccupied || bed.PatientID != p.ID {
		t.Fatalf("bed = %+v", bed)
	}
	got := mustPatient(t, svc, p.ID)
	if got.Status != PatientAdmitted || got.BedID != "B004" {
		t.Fatalf("patient = %s/%s", got.Status, got.BedID)
	}
	if d := mustDoctor(t, svc, "D001"); len(d.Queue) != 0 {
		t.Errorf("admitted patient still queued: %v", d.Queue)
	}

	out, err := svc.DischargePatient(ctx, "B004")
	if err != nil || out == nil || out.ID != p.ID {
		t.Fatalf("discharge = %v, %v", out, err)
	}
	if b := mustBed(t, svc, "B004"); b.Status != BedAvailable || b.PatientID != "" {
		t.Errorf("bed after discharge = %+v", b)
	}
	got = mustPatient(t, svc, p.ID)
	if got.Status != PatientDischarged || got.BedID != "" {
		t.Errorf("patient after discharge = %s/%s", got.Status, got.BedID)
	}

	if _, err := svc.AdmitPatient(ctx, p.ID, BedGeneral); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("admitting a discharged patient: got %v", err)
	}
}

func TestAdmitPatient_NeverDoubleOccupies(t *testing.T) {
	svc, _ := newTestService(t)
	a := register(t, svc, "A", "fever", 30)
	b := register(t, svc, "B", "fever", 30)
	c := register(t, svc, "C", "fever", 30)

	used := map[string]bool{}
	for _, p := range []*Patient{a, b} {
		bed, err := svc.AdmitPatient(ctx, p.ID, BedGeneral)
		if err != nil {
			t.Fatal(err)
		}
		if used[bed.ID] {
			t.Fatalf("bed %s handed out twice", bed.ID)
		}
		used[bed.ID] = true
	}
	if _, err := svc.AdmitPatient(ctx, a.ID, BedGeneral); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("re-admitting: got %v", err)
	}
	if _, err := svc.AdmitPatient(ctx, c.ID, BedGeneral); !errors.Is(err, ErrNoBedAvailable) {
		t.Fatalf("expected no bed, got %v", err)
	}
	if got := mustPatient(t, svc, c.ID); got.Status != PatientWaiting || got.BedID != "" {
		t.Errorf("failed admission changed patient: %s/%s", got.Status, got.BedID)
	}
	if pos, _ := svc.QueuePosition(ctx, c.ID); pos != 1 {
		t.Errorf("failed admission changed queue position: %d", pos)
	}
}

func TestAdmitPatient_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	p := register(t, svc, "A", "fever", 30)
	if _, err := svc.AdmitPatient(ctx, p.ID, "suite"); !errors.Is(err, ErrInvalidBedType) {
		t.Errorf("bad type: got %v", err)
	}
	if _, err := svc.AdmitPatient(ctx, "P0000", BedGeneral); !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("unknown patient: got %v", err)
	}
}

func TestDischargePatient_EmptyBedIsNoop(t *testing.T) {
	svc, n := newTestService(t)
	p, err := svc.DischargePatient(ctx, "B005")
	if err != nil || p != nil {
		t.Errorf("got %v, %v", p, err)
	}
	if n.count() != 0 {
		t.Error("no-op discharge produced a change")
	}
	if _, err := svc.DischargePatient(ctx, "B999"); !errors.Is(err, ErrBedNotFound) {
		t.Errorf("unknown bed: got %v", err)
	}
}

func TestUpdateBedStatus(t *testing.T) {
	svc, _ := newTestService(t)
	if err := svc.UpdateBedStatus(ctx, "B001", BedMaintenance); err != nil {
		t.Fatal(err)
	}
	p := register(t, svc, "A", "fever", 30)
	bed, err := svc.AdmitPatient(ctx, p.ID, BedGeneral)
	if err != nil {
		t.Fatal(err)
	}
	if bed.ID != "B002" {
		t.Errorf("admitted into %s, want B002", bed.ID)
	}
	if err := svc.UpdateBedStatus(ctx, "B002", BedMaintenance); !errors.Is(err, ErrBedOccupied) {
		t.Errorf("occupied bed: got %v", err)
	}
	if err := svc.UpdateBedStatus(ctx, "B005", BedOccupied); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("manual occupy: got %v", err)
	}
	if err := svc.UpdateBedStatus(ctx, "B005", "broken"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("invalid status: got %v", err)
	}
}

func TestPrescription_DispenseClampsStockAndDischarges(t *testing.T) {
	svc, _ := newTestService(t)
	p := register(t, svc, "A", "fever", 30)

	rx, err := svc.CreatePrescription(ctx, p.ID, "D001", []ItemRequest{
		{MedicineID: "M002", Dosage: "1-0-1", Quantity: 8},
		{MedicineID: "M001", Dosage: "SOS", Quantity: 10},
	})
	if err != nil {
		t.Fatal(err)
	}
	if rx.ID != "RX00001" || rx.Items[0].MedicineName != "Amoxicillin 250mg" || rx.Dispensed {
		t.Fatalf("rx = %+v", rx)
	}
	if got := mustPatient(t, svc, p.ID); got.Status != PatientPharmacy || got.PrescriptionID != rx.ID {
		t.Errorf("patient = %s/%s", got.Status, got.PrescriptionID)
	}
	if m, _ := svc.Store().Medicine("M002"); m.Stock != 5 {
		t.Errorf("stock touched before dispensing: %d", m.Stock)
	}

	out, err := svc.DispensePrescription(ctx, rx.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Dispensed || out.DispensedAt == nil || !out.DispensedAt.Equal(fixedNow) {
		t.Errorf("dispensed rx = %+v", out)
	}
	if m, _ := svc.Store().Medicine("M002"); m.Stock != 0 {
		t.Errorf("M002 stock = %d, want 0", m.Stock)
	}
	if m, _ := svc.Store().Medicine("M001"); m.Stock != 90 {
		t.Errorf("M001 stock = %d, want 90", m.Stock)
	}
	if got := mustPatient(t, svc, p.ID); got.Status != PatientDischarged {
		t.Errorf("patient = %s, want discharged", got.Status)
	}

	if _, err := svc.DispensePrescription(ctx, rx.ID); !errors.Is(err, ErrAlreadyDispensed) {
		t.Errorf("second dispense: got %v", err)
	}
	if m, _ := svc.Store().Medicine("M001"); m.Stock != 90 {
		t.Errorf("second dispense moved stock: %d", m.Stock)
	}
}

func TestPrescription_AdmittedPatientKeepsBed(t *testing.T) {
	svc, _ := newTestService(t)
	p := register(t, svc, "A", "fever", 30)
	if _, err := svc.AdmitPatient(ctx, p.ID, BedGeneral); err != nil {
		t.Fatal(err)
	}
	rx, err := svc.CreatePrescription(ctx, p.ID, "D001", []ItemRequest{{MedicineID: "M001", Quantity: 2}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.DispensePrescription(ctx, rx.ID); err != nil {
		t.Fatal(err)
	}
	if got := mustPatient(t, svc, p.ID); got.Status != PatientAdmitted || got.BedID == "" {
		t.Errorf("admitted patient moved: %s/%s", got.Status, got.BedID)
	}
}

func TestDispensedPatientLeavesTheQueue(t *testing.T) {
	svc, _ := newTestService(t)
	p := register(t, svc, "A", "fever", 30)
	if d := mustDoctor(t, svc, "D001"); len(d.Queue) != 1 {
		t.Fatalf("queue = %v", d.Queue)
	}

	rx, err := svc.CreatePrescription(ctx, p.ID, "D001", []ItemRequest{{MedicineID: "M001", Quantity: 1}})
	if err != nil {
		t.Fatal(err)
	}
	if d := mustDoctor(t, svc, "D001"); len(d.Queue) != 0 {
		t.Errorf("queue after prescription = %v", d.Queue)
	}
	if _, err := svc.DispensePrescription(ctx, rx.ID); err != nil {
		t.Fatal(err)
	}

	called, err := svc.CallNextPatient(ctx, "D001")
	if err != nil || called != nil {
		t.Fatalf("call next = %v, %v; want nothing", called, err)
	}
	if got := mustPatient(t, svc, p.ID); got.Status != PatientDischarged {
		t.Errorf("status = %s, want discharged", got.Status)
	}
}

func TestCallNextPatient_SkipsPatientsNoLongerWaiting(t *testing.T) {
	snap := fixture()
	snap.Patients = []Patient{
		{ID: "P1001", Name: "Gone", Status: PatientDischarged, AssignedDoctor: "D001", TokenNumber: 101},
		{ID: "P1002", Name: "Next", Status: PatientWaiting, AssignedDoctor: "D001", TokenNumber: 102},
	}
	snap.Doctors[0].Queue = []string{"P1001", "P1002"}
	svc, _ := newTestServiceFrom(t, snap)

	called, err := svc.CallNextPatient(ctx, "D001")
	if err != nil || called == nil || called.ID != "P1002" {
		t.Fatalf("call next = %v, %v; want P1002", called, err)
	}
	if got := mustPatient(t, svc, "P1001"); got.Status != PatientDischarged {
		t.Errorf("skipped patient status = %s", got.Status)
	}
	if d := mustDoctor(t, svc, "D001"); len(d.Queue) != 0 || d.CurrentPatientID != "P1002" {
		t.Errorf("doctor = %+v", d)
	}
}

func TestCompleteConsultation_KeepsDischargedPatient(t *testing.T) {
	svc, _ := newTestService(t)
	p := register(t, svc, "A", "fever", 30)
	if _, err := svc.CallNextPatient(ctx, "D001"); err != nil {
		t.Fatal(err)
	}
	rx, err := svc.CreatePrescription(ctx, p.ID, "D001", []ItemRequest{{MedicineID: "M001", Quantity: 1}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.DispensePrescription(ctx, rx.ID); err != nil {
		t.Fatal(err)
	}

	out, err := svc.CompleteConsultation(ctx, "D001", ActionRefer)
	if err != nil {
		t.Fatal(err)
	}
	if out == nil || out.Status != PatientDischarged || out.PendingDisposition != DispositionNone {
		t.Errorf("patient after complete = %+v", out)
	}
	if d := mustDoctor(t, svc, "D001"); d.Status != DoctorAvailable || d.CurrentPatientID != "" {
		t.Errorf("doctor = %s/%q", d.Status, d.CurrentPatientID)
	}
}

func TestCreatePrescription_Validation(t *testing.T) {
	svc, n := newTestService(t)
	p := register(t, svc, "A", "fever", 30)
	before := n.count()

	if _, err := svc.CreatePrescription(ctx, p.ID, "D001", nil); !errors.Is(err, ErrEmptyPrescription) {
		t.Errorf("empty: got %v", err)
	}
	if _, err := svc.CreatePrescription(ctx, p.ID, "D001", []ItemRequest{{MedicineID: "M001", Quantity: 0}}); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("zero quantity: got %v", err)
	}
	if _, err := svc.CreatePrescription(ctx, p.ID, "D001", []ItemRequest{{MedicineID: "M404", Quantity: 1}}); !errors.Is(err, ErrMedicineNotFound) {
		t.Errorf("unknown medicine: got %v", err)
	}
	if _, err := svc.CreatePrescription(ctx, p.ID, "D999", []ItemRequest{{MedicineID: "M001", Quantity: 1}}); !errors.Is(err, ErrDoctorNotFound) {
		t.Errorf("unknown doctor: got %v", err)
	}
	if n.count() != before {
		t.Error("rejected prescriptions produced changes")
	}
	if got := mustPatient(t, svc, p.ID); got.Status != PatientWaiting {
		t.Errorf("rejected prescription moved patient to %s", got.Status)
	}

	rx, err := svc.CreatePrescription(ctx, p.ID, "D001", []ItemRequest{{MedicineID: "M001", Quantity: 1}})
	if err != nil {
		t.Fatal(err)
	}
	if rx.ID != "RX00001" {
		t.Errorf("rejected attempts consumed ids: got %s", rx.ID)
	}
	if _, err := svc.DispensePrescription(ctx, "RX99999"); !errors.Is(err, ErrPrescriptionNotFound) {
		t.Errorf("unknown rx: got %v", err)
	}
}

func TestMedicines(t *testing.T) {
	svc, _ := newTestService(t)

	m, err := svc.AddMedicine(ctx, NewMedicine{Name: " Cetirizine 10mg ", Stock: 40, Unit: "tablets", LowStockThreshold: 10})
	if err != nil {
		t.Fatal(err)
	}
	if m.ID != "M003" || m.Name != "Cetirizine 10mg" {
		t.Errorf("added = %+v", m)
	}
	if _, err := svc.AddMedicine(ctx, NewMedicine{Name: ""}); !errors.Is(err, ErrInvalidMedicine) {
		t.Errorf("blank name: got %v", err)
	}
	if _, err := svc.AddMedicine(ctx, NewMedicine{Name: "X", Stock: -1}); !errors.Is(err, ErrInvalidStock) {
		t.Errorf("negative stock: got %v", err)
	}

	if got := svc.LowStockMedicines(ctx); len(got) != 1 || got[0].ID != "M002" {
		t.Errorf("low stock = %v", got)
	}
	if err := svc.UpdateMedicineStock(ctx, "M002", 50); err != nil {
		t.Fatal(err)
	}
	if got := svc.LowStockMedicines(ctx); len(got) != 0 {
		t.Errorf("low stock after restock = %v", got)
	}
	if err := svc.UpdateMedicineStock(ctx, "M002", -5); !errors.Is(err, ErrInvalidStock) {
		t.Errorf("negative: got %v", err)
	}
	if err := svc.UpdateMedicineStock(ctx, "M404", 5); !errors.Is(err, ErrMedicineNotFound) {
		t.Errorf("unknown: got %v", err)
	}

	if got := svc.SearchMedicines(ctx, "AMOX"); len(got) != 1 || got[0].ID != "M002" {
		t.Errorf("search = %v", got)
	}
	if got := svc.SearchMedicines(ctx, ""); len(got) != 3 {
		t.Errorf("empty search returned %d", len(got))
	}
}

func TestWaitingTimeAndQueuePosition(t *testing.T) {
	svc, _ := newTestService(t)
	a := register(t, svc, "A", "fever", 30)
	register(t, svc, "B", "fever", 30)
	c := register(t, svc, "C", "fever", 30)

	if pos, _ := svc.QueuePosition(ctx, c.ID); pos != 3 {
		t.Errorf("position = %d, want 3", pos)
	}
	if w, _ := svc.WaitingTime(ctx, a.ID); w != 0 {
		t.Errorf("head wait = %d, want 0", w)
	}
	// Two ahead, 15 minutes each, one General Medicine doctor available.
	if w, _ := svc.WaitingTime(ctx, c.ID); w != 30 {
		t.Errorf("wait = %d, want 30", w)
	}

	if err := svc.UpdateDoctorStatus(ctx, "D004", DoctorAvailable); err != nil {
		t.Fatal(err)
	}
	if w, _ := svc.WaitingTime(ctx, c.ID); w != 15 {
		t.Errorf("wait with two doctors = %d, want 15", w)
	}

	// The doctor's own busy state never drops the divisor below one.
	if err := svc.UpdateDoctorStatus(ctx, "D004", DoctorBreak); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CallNextPatient(ctx, "D001"); err != nil {
		t.Fatal(err)
	}
	if w, _ := svc.WaitingTime(ctx, c.ID); w != 15 {
		t.Errorf("wait after call = %d, want 15", w)
	}
	if w, _ := svc.WaitingTime(ctx, a.ID); w != 0 {
		t.Errorf("patient in consultation wait = %d, want 0", w)
	}

	if _, err := svc.WaitingTime(ctx, "P0000"); !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("unknown: got %v", err)
	}
	if _, err := svc.QueuePosition(ctx, "P0000"); !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("unknown position: got %v", err)
	}

	for _, id := range []string{"D001", "D002", "D003", "D004"} {
		if err := svc.UpdateDoctorStatus(ctx, id, DoctorOffline); err != nil && !errors.Is(err, ErrDoctorInConsultation) {
			t.Fatal(err)
		}
	}
	u := register(t, svc, "U", "fever", 30)
	if u.AssignedDoctor != "" {
		t.Fatalf("expected no doctor, got %q", u.AssignedDoctor)
	}
	if pos, err := svc.QueuePosition(ctx, u.ID); err != nil || pos != triage.WaitUnknown {
		t.Errorf("unassigned position = %d, %v; want unknown", pos, err)
	}
	if w, err := svc.WaitingTime(ctx, u.ID); err != nil || w != triage.WaitUnknown {
		t.Errorf("unassigned wait = %d, %v; want unknown", w, err)
	}
}

func TestDoctorQueue(t *testing.T) {
	svc, _ := newTestService(t)
	a := register(t, svc, "A", "fever", 30)
	b := register(t, svc, "B", "fever", 30)
	if _, err := svc.CallNextPatient(ctx, "D001"); err != nil {
		t.Fatal(err)
	}

	v, err := svc.DoctorQueue(ctx, "D001")
	if err != nil {
		t.Fatal(err)
	}
	if v.Current == nil || v.Current.ID != a.ID {
		t.Errorf("current = %v", v.Current)
	}
	if len(v.Waiting) != 1 || v.Waiting[0].Patient.ID != b.ID || v.Waiting[0].Position != 1 {
		t.Errorf("waiting = %+v", v.Waiting)
	}
	if _, err := svc.DoctorQueue(ctx, "D999"); !errors.Is(err, ErrDoctorNotFound) {
		t.Errorf("unknown: got %v", err)
	}
}

func TestListPatients(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "Ravi Kumar", "fever", 30)
	register(t, svc, "Anita Desai", "chest pain", 40)
	register(t, svc, "Ravindra Jain", "fever", 30)

	items, total := svc.ListPatients(ctx, PatientFilter{Query: "ravi"}, 10, 0)
	if total != 2 || len(items) != 2 {
		t.Errorf("query: total=%d len=%d", total, len(items))
	}
	items, total = svc.ListPatients(ctx, PatientFilter{Classification: triage.Emergency}, 10, 0)
	if total != 1 || items[0].Name != "Anita Desai" {
		t.Errorf("classification: %v", items)
	}
	items, total = svc.ListPatients(ctx, PatientFilter{DoctorID: "D001", Status: PatientWaiting}, 10, 0)
	if total != 2 {
		t.Errorf("doctor+status: total=%d", total)
	}
	items, total = svc.ListPatients(ctx, PatientFilter{}, 2, 2)
	if total != 3 || len(items) != 1 || items[0].Name != "Ravindra Jain" {
		t.Errorf("page: total=%d items=%v", total, items)
	}
	items, _ = svc.ListPatients(ctx, PatientFilter{}, 2, 10)
	if items == nil || len(items) != 0 {
		t.Errorf("past end: %v", items)
	}
}

func TestOverview(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "A", "fever", 30)
	register(t, svc, "B", "chest pain", 40)
	c := register(t, svc, "C", "fever", 30)
	if _, err := svc.AdmitPatient(ctx, c.ID, BedICU); err != nil {
		t.Fatal(err)
	}

	ov := svc.Overview(ctx)
	if ov.PatientsWaiting != 2 || ov.PatientsAdmitted != 1 || ov.RegisteredToday != 3 || ov.EmergencyActive != 1 {
		t.Errorf("patient counters = %+v", ov)
	}
	icu := ov.Beds[BedICU]
	if icu.Total != 2 || icu.Occupied != 1 || icu.Maintenance != 1 || icu.UtilizationPct != 50 {
		t.Errorf("icu = %+v", icu)
	}
	if ov.TotalBeds.Total != 5 || ov.TotalBeds.Occupied != 1 || ov.TotalBeds.UtilizationPct != 20 {
		t.Errorf("total beds = %+v", ov.TotalBeds)
	}
	if ov.DoctorsOnDuty != 4 || ov.DoctorsAvailable != 3 {
		t.Errorf("doctors = %d on duty, %d available", ov.DoctorsOnDuty, ov.DoctorsAvailable)
	}
	if ov.LowStockMedicines != 1 || ov.PendingPrescriptions != 0 {
		t.Errorf("pharmacy = %d low, %d pending", ov.LowStockMedicines, ov.PendingPrescriptions)
	}
	if !ov.GeneratedAt.Equal(fixedNow) {
		t.Errorf("generated at %v", ov.GeneratedAt)
	}
}

func TestOverview_AverageWait(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "A", "fever", 30)
	register(t, svc, "B", "fever", 30)

	// Waits are 0 and 15.
	if got := svc.Overview(ctx).AverageWaitMinutes; got != 8 {
		t.Errorf("average wait = %d, want 8", got)
	}
}

func TestNotifier_ReportsTouchedTopics(t *testing.T) {
	svc, n := newTestService(t)
	p := register(t, svc, "A", "fever", 30)

	c, ok := n.last()
	if !ok || c.Op != "register_patient" || !equalStrings(c.Topics, []string{TopicPatients, TopicDoctors}) {
		t.Errorf("register change = %+v", c)
	}

	rx, err := svc.CreatePrescription(ctx, p.ID, "D001", []ItemRequest{{MedicineID: "M001", Quantity: 1}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.DispensePrescription(ctx, rx.ID); err != nil {
		t.Fatal(err)
	}
	c, _ = n.last()
	if c.Op != "dispense_prescription" || !equalStrings(c.Topics, []string{TopicPatients, TopicMedicines, TopicPrescriptions}) {
		t.Errorf("dispense change = %+v", c)
	}
	if len(c.IDs) != 1 || c.IDs[0] != rx.ID || !c.At.Equal(fixedNow) {
		t.Errorf("dispense ids/at = %v %v", c.IDs, c.At)
	}
}

// Register "fever", 30 with D001 available, then call, complete with admit
// and admit to a general bed.
func TestEndToEnd_FeverPatientAdmitted(t *testing.T) {
	svc, _ := newTestService(t)

	p := register(t, svc, "Ravi Kumar", "fever", 30)
	if p.Classification != triage.General || p.AssignedDoctor != "D001" || p.Status != PatientWaiting {
		t.Fatalf("registered = %s/%s/%s", p.Classification, p.AssignedDoctor, p.Status)
	}

	called, err := svc.CallNextPatient(ctx, "D001")
	if err != nil || called == nil || called.ID != p.ID {
		t.Fatalf("call next = %v, %v", called, err)
	}
	if got := mustPatient(t, svc, p.ID); got.Status != PatientInConsultation {
		t.Fatalf("status = %s, want in-consultation", got.Status)
	}
	if d := mustDoctor(t, svc, "D001"); d.Status != DoctorBusy {
		t.Fatalf("doctor = %s, want busy", d.Status)
	}

	if _, err := svc.CompleteConsultation(ctx, "D001", ActionAdmit); err != nil {
		t.Fatal(err)
	}
	if got := mustPatient(t, svc, p.ID); got.Status != PatientRegistered {
		t.Fatalf("status = %s, want registered", got.Status)
	}
	if d := mustDoctor(t, svc, "D001"); d.Status != DoctorAvailable {
		t.Fatalf("doctor = %s, want available", d.Status)
	}

	bed, err := svc.AdmitPatient(ctx, p.ID, BedGeneral)
	if err != nil {
		t.Fatal(err)
	}
	got := mustPatient(t, svc, p.ID)
	if got.Status != PatientAdmitted || got.BedID == "" || got.BedID != bed.ID {
		t.Fatalf("admitted = %s/%s", got.Status, got.BedID)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
