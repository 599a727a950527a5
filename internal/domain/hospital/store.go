package hospital

import (
	"sync"
)

// keyed is implemented by every stored entity.
type keyed interface {
	key() string
}

func (p Patient) key() string      { return p.ID }
func (d Doctor) key() string       { return d.ID }
func (b Bed) key() string          { return b.ID }
func (m Medicine) key() string     { return m.ID }
func (p Prescription) key() string { return p.ID }

// collection keeps insertion order plus an id index.
type collection[T keyed] struct {
	items []T
	index map[string]int
}

func newCollection[T keyed](items []T) collection[T] {
	c := collection[T]{index: make(map[string]int, len(items))}
	for _, it := range items {
		c.add(it)
	}
	return c
}

func (c collection[T]) get(id string) (T, bool) {
	i, ok := c.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return c.items[i], true
}

// ptr returns a pointer into items. Only valid on a cloned collection.
func (c *collection[T]) ptr(id string) *T {
	i, ok := c.index[id]
	if !ok {
		return nil
	}
	return &c.items[i]
}

// add appends it; an existing id is replaced in place.
func (c *collection[T]) add(it T) {
	if i, ok := c.index[it.key()]; ok {
		c.items[i] = it
		return
	}
	c.index[it.key()] = len(c.items)
	c.items = append(c.items, it)
}

func (c collection[T]) clone(deep func(T) T) collection[T] {
	out := collection[T]{
		items: make([]T, len(c.items)),
		index: make(map[string]int, len(c.index)),
	}
	for i, it := range c.items {
		if deep != nil {
			it = deep(it)
		}
		out.items[i] = it
	}
	for k, v := range c.index {
		out.index[k] = v
	}
	return out
}

func (c collection[T]) list(deep func(T) T) []T {
	out := make([]T, len(c.items))
	for i, it := range c.items {
		if deep != nil {
			it = deep(it)
		}
		out[i] = it
	}
	return out
}

func cloneDoctor(d Doctor) Doctor {
	d.Queue = append([]string(nil), d.Queue...)
	return d
}

func clonePrescription(p Prescription) Prescription {
	p.Items = append([]PrescriptionItem(nil), p.Items...)
	if p.DispensedAt != nil {
		t := *p.DispensedAt
		p.DispensedAt = &t
	}
	return p
}

// state is one immutable version of every collection. A committed state is
// never modified; writers derive a new one.
type state struct {
	patients      collection[Patient]
	doctors       collection[Doctor]
	beds          collection[Bed]
	medicines     collection[Medicine]
	prescriptions collection[Prescription]
	seq           sequences
}

// Snapshot is a detached copy of the store contents, in collection order.
type Snapshot struct {
	Patients      []Patient      `json:"patients"`
	Doctors       []Doctor       `json:"doctors"`
	Beds          []Bed          `json:"beds"`
	Medicines     []Medicine     `json:"medicines"`
	Prescriptions []Prescription `json:"prescriptions"`
}

// Store is the in-memory source of truth for one hospital session.
// Writers are serialized and work on a copy of the collections they touch;
// the copy replaces the committed state only if the whole operation
// succeeds, so readers never observe a half-applied change.
type Store struct {
	mu  sync.RWMutex
	cur *state
}

// NewStore creates a store holding the given initial data. Id and token
// sequences are advanced past every seeded value, and a doctor seeded busy
// without a current patient starts available.
func NewStore(initial Snapshot) *Store {
	st := &state{
		patients:      newCollection(initial.Patients),
		doctors:       newCollection(mapSlice(initial.Doctors, seedDoctor)),
		beds:          newCollection(initial.Beds),
		medicines:     newCollection(initial.Medicines),
		prescriptions: newCollection(mapSlice(initial.Prescriptions, clonePrescription)),
		seq:           defaultSequences(),
	}
	for _, p := range initial.Patients {
		st.seq.patient.Observe(p.ID)
		st.seq.token.ObserveValue(p.TokenNumber)
	}
	for _, m := range initial.Medicines {
		st.seq.medicine.Observe(m.ID)
	}
	for _, rx := range initial.Prescriptions {
		st.seq.prescription.Observe(rx.ID)
	}
	return &Store{cur: st}
}

func seedDoctor(d Doctor) Doctor {
	d = cloneDoctor(d)
	if d.Status == DoctorBusy && d.CurrentPatientID == "" {
		d.Status = DoctorAvailable
	}
	return d
}

func mapSlice[T any](in []T, fn func(T) T) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}

// view returns the committed state. The result must be treated as read-only.
func (s *Store) view() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// update runs fn against a transaction over the committed state and commits
// the result if fn returns nil.
func (s *Store) update(fn func(tx *tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{st: *s.cur}
	if err := fn(t); err != nil {
		return err
	}
	next := t.st
	s.cur = &next
	return nil
}

// Snapshot returns a deep copy of every collection.
func (s *Store) Snapshot() Snapshot {
	st := s.view()
	return Snapshot{
		Patients:      st.patients.list(nil),
		Doctors:       st.doctors.list(cloneDoctor),
		Beds:          st.beds.list(nil),
		Medicines:     st.medicines.list(nil),
		Prescriptions: st.prescriptions.list(clonePrescription),
	}
}

// Patient returns a copy of the patient with the given id.
func (s *Store) Patient(id string) (Patient, bool) {
	return s.view().patients.get(id)
}

// Doctor returns a copy of the doctor with the given id.
func (s *Store) Doctor(id string) (Doctor, bool) {
	d, ok := s.view().doctors.get(id)
	if !ok {
		return Doctor{}, false
	}
	return cloneDoctor(d), true
}

// Bed returns a copy of the bed with the given id.
func (s *Store) Bed(id string) (Bed, bool) {
	return s.view().beds.get(id)
}

// Medicine returns a copy of the medicine with the given id.
func (s *Store) Medicine(id string) (Medicine, bool) {
	return s.view().medicines.get(id)
}

// Prescription returns a copy of the prescription with the given id.
func (s *Store) Prescription(id string) (Prescription, bool) {
	rx, ok := s.view().prescriptions.get(id)
	if !ok {
		return Prescription{}, false
	}
	return clonePrescription(rx), true
}

// Patients returns copies of the patients matching keep, in registration order.
func (s *Store) Patients(keep func(Patient) bool) []Patient {
	return filter(s.view().patients.items, keep, nil)
}

// Doctors returns copies of the doctors matching keep.
func (s *Store) Doctors(keep func(Doctor) bool) []Doctor {
	return filter(s.view().doctors.items, keep, cloneDoctor)
}

// Beds returns copies of the beds matching keep.
func (s *Store) Beds(keep func(Bed) bool) []Bed {
	return filter(s.view().beds.items, keep, nil)
}

// Medicines returns copies of the medicines matching keep.
func (s *Store) Medicines(keep func(Medicine) bool) []Medicine {
	return filter(s.view().medicines.items, keep, nil)
}

// Prescriptions returns copies of the prescriptions matching keep.
func (s *Store) Prescriptions(keep func(Prescription) bool) []Prescription {
	return filter(s.view().prescriptions.items, keep, clonePrescription)
}

func filter[T any](items []T, keep func(T) bool, deep func(T) T) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep != nil && !keep(it) {
			continue
		}
		if deep != nil {
			it = deep(it)
		}
		out = append(out, it)
	}
	return out
}

const (
	dirtyPatients = 1 << iota
	dirtyDoctors
	dirtyBeds
	dirtyMedicines
	dirtyPrescriptions
)

// tx is a pending state. Read helpers return values from whichever version
// of a collection the tx currently holds; write helpers clone a collection
// the first time it is touched.
type tx struct {
	st    state
	dirty int
}

func (t *tx) patient(id string) (Patient, bool)           { return t.st.patients.get(id) }
func (t *tx) doctor(id string) (Doctor, bool)             { return t.st.doctors.get(id) }
func (t *tx) bed(id string) (Bed, bool)                   { return t.st.beds.get(id) }
func (t *tx) medicine(id string) (Medicine, bool)         { return t.st.medicines.get(id) }
func (t *tx) prescription(id string) (Prescription, bool) { return t.st.prescriptions.get(id) }

func (t *tx) patients() *collection[Patient] {
	if t.dirty&dirtyPatients == 0 {
		t.st.patients = t.st.patients.clone(nil)
		t.dirty |= dirtyPatients
	}
	return &t.st.patients
}

func (t *tx) doctors() *collection[Doctor] {
	if t.dirty&dirtyDoctors == 0 {
		t.st.doctors = t.st.doctors.clone(cloneDoctor)
		t.dirty |= dirtyDoctors
	}
	return &t.st.doctors
}

func (t *tx) beds() *collection[Bed] {
	if t.dirty&dirtyBeds == 0 {
		t.st.beds = t.st.beds.clone(nil)
		t.dirty |= dirtyBeds
	}
	return &t.st.beds
}

func (t *tx) medicines() *collection[Medicine] {
	if t.dirty&dirtyMedicines == 0 {
		t.st.medicines = t.st.medicines.clone(nil)
		t.dirty |= dirtyMedicines
	}
	return &t.st.medicines
}

func (t *tx) prescriptions() *collection[Prescription] {
	if t.dirty&dirtyPrescriptions == 0 {
		t.st.prescriptions = t.st.prescriptions.clone(clonePrescription)
		t.dirty |= dirtyPrescriptions
	}
	return &t.st.prescriptions
}

// removeFromQueues drops patientID from every doctor queue except keep.
func (t *tx) removeFromQueues(patientID, keep string) {
	for _, d := range t.st.doctors.items {
		if d.ID == keep || indexOf(d.Queue, patientID) < 0 {
			continue
		}
		w := t.doctors().ptr(d.ID)
		w.Queue = removeID(w.Queue, patientID)
	}
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
