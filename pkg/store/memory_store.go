package store

import (
	"sort"
	"sync"

	"careassist/internal/util"
	"careassist/pkg/domain"
)

// MemoryStore keeps records in-process. It backs tests and local runs
// without Postgres.
type MemoryStore struct {
	mu       sync.RWMutex
	patients map[string]domain.Patient
	email    map[string]string // email -> patient ID
	entries  map[string][]domain.Entry
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		patients: make(map[string]domain.Patient),
		email:    make(map[string]string),
		entries:  make(map[string][]domain.Entry),
	}
}

// CreatePatient registers a patient; duplicate emails are rejected.
func (m *MemoryStore) CreatePatient(p domain.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.email[p.Email]; exists {
		return ErrDuplicateEmail
	}
	m.patients[p.ID] = p
	m.email[p.Email] = p.ID
	return nil
}

// HasPatientEmail checks if email exists.
func (m *MemoryStore) HasPatientEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

// GetPatientByEmail looks up a patient by email.
func (m *MemoryStore) GetPatientByEmail(email string) (domain.Patient, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.email[email]
	if !ok {
		return domain.Patient{}, false, nil
	}
	p, ok := m.patients[id]
	return p, ok, nil
}

// GetPatientByID returns a patient by ID.
func (m *MemoryStore) GetPatientByID(id string) (domain.Patient, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.patients[id]
	return p, ok, nil
}

// InsertEntry appends an entry, assigning an ID when missing.
func (m *MemoryStore) InsertEntry(e domain.Entry) (domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = util.NewID()
	}
	m.entries[e.PatientID] = append(m.entries[e.PatientID], e)
	return e, nil
}

// ListEntries returns the patient's entries constrained by q.
func (m *MemoryStore) ListEntries(patientID string, q EntryQuery) ([]domain.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Entry, 0, len(m.entries[patientID]))
	for _, e := range m.entries[patientID] {
		if q.From != nil && e.Timestamp.Before(*q.From) {
			continue
		}
		if q.To != nil && e.Timestamp.After(*q.To) {
			continue
		}
		res = append(res, e)
	}
	sort.SliceStable(res, func(i, j int) bool {
		if q.Descending {
			return res[j].Timestamp.Before(res[i].Timestamp)
		}
		return res[i].Timestamp.Before(res[j].Timestamp)
	})
	if q.Limit > 0 && len(res) > q.Limit {
		res = res[:q.Limit]
	}
	return res, nil
}

// LatestEntry returns the most recent entry for the patient.
func (m *MemoryStore) LatestEntry(patientID string) (domain.Entry, bool, error) {
	entries, err := m.ListEntries(patientID, EntryQuery{Descending: true, Limit: 1})
	if err != nil {
		return domain.Entry{}, false, err
	}
	if len(entries) == 0 {
		return domain.Entry{}, false, nil
	}
	return entries[0], true, nil
}
