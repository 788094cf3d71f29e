package store

import (
	"errors"
	"testing"
	"time"

	"careassist/pkg/domain"
)

func seedEntries(t *testing.T, s *MemoryStore, patientID string, hours ...int) []domain.Entry {
	t.Helper()
	base := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	out := make([]domain.Entry, 0, len(hours))
	for _, h := range hours {
		e, err := s.InsertEntry(domain.Entry{
			PatientID: patientID,
			Timestamp: base.Add(time.Duration(h) * time.Hour),
			UFMl:      float64(h),
		})
		if err != nil {
			t.Fatalf("insert entry: %v", err)
		}
		out = append(out, e)
	}
	return out
}

func TestInsertEntryAssignsID(t *testing.T) {
	s := NewMemoryStore()
	e, err := s.InsertEntry(domain.Entry{PatientID: "p1"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if e.ID == "" {
		t.Fatalf("expected store-assigned ID")
	}
}

func TestListEntriesOrderingAndLimit(t *testing.T) {
	s := NewMemoryStore()
	seedEntries(t, s, "p1", 8, 2, 14)

	asc, err := s.ListEntries("p1", EntryQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(asc) != 3 || asc[0].UFMl != 2 || asc[2].UFMl != 14 {
		t.Fatalf("ascending order wrong: %+v", asc)
	}

	desc, err := s.ListEntries("p1", EntryQuery{Descending: true, Limit: 1})
	if err != nil {
		t.Fatalf("list desc: %v", err)
	}
	if len(desc) != 1 || desc[0].UFMl != 14 {
		t.Fatalf("descending limit wrong: %+v", desc)
	}
}

func TestListEntriesRange(t *testing.T) {
	s := NewMemoryStore()
	seedEntries(t, s, "p1", 1, 5, 9)
	from := time.Date(2026, 3, 10, 4, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	got, err := s.ListEntries("p1", EntryQuery{From: &from, To: &to})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].UFMl != 5 {
		t.Fatalf("range filter wrong: %+v", got)
	}
}

func TestLatestEntry(t *testing.T) {
	s := NewMemoryStore()
	if _, ok, err := s.LatestEntry("p1"); err != nil || ok {
		t.Fatalf("expected absence on empty store, got ok=%v err=%v", ok, err)
	}
	seedEntries(t, s, "p1", 3, 11, 7)
	latest, ok, err := s.LatestEntry("p1")
	if err != nil || !ok {
		t.Fatalf("latest: ok=%v err=%v", ok, err)
	}
	if latest.UFMl != 11 {
		t.Fatalf("latest = %+v, want the 11:00 entry", latest)
	}
}

func TestCreatePatientRejectsDuplicateEmail(t *testing.T) {
	s := NewMemoryStore()
	p := domain.Patient{ID: "p1", Email: "a@b.c"}
	if err := s.CreatePatient(p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.CreatePatient(domain.Patient{ID: "p2", Email: "a@b.c"}); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("duplicate email err = %v, want ErrDuplicateEmail", err)
	}
	if ok, _ := s.HasPatientEmail("a@b.c"); !ok {
		t.Fatalf("expected email to exist")
	}
	got, ok, _ := s.GetPatientByEmail("a@b.c")
	if !ok || got.ID != "p1" {
		t.Fatalf("lookup by email wrong: %+v ok=%v", got, ok)
	}
}
