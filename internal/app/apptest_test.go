package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"careassist/pkg/ai"
	"careassist/pkg/auth"
	"careassist/pkg/domain"
	"careassist/pkg/store"
)

// fakeCompleter records requests and replays canned results.
type fakeCompleter struct {
	mu    sync.Mutex
	calls []completerCall

	reply string
	err   error

	// block, when set, holds the call until released. Used to observe
	// the sending state mid-flight.
	block   chan struct{}
	started chan struct{}
}

type completerCall struct {
	Model             string
	SystemInstruction string
	Contents          []ai.Content
}

func (f *fakeCompleter) GenerateContent(ctx context.Context, model, systemInstruction string, contents []ai.Content) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, completerCall{Model: model, SystemInstruction: systemInstruction, Contents: contents})
	block := f.block
	started := f.started
	f.mu.Unlock()
	if started != nil {
		close(started)
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeCompleter) lastCall(t *testing.T) completerCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatal("no completion call recorded")
	}
	return f.calls[len(f.calls)-1]
}

func newTestApp(t *testing.T, completer Completer) (*App, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	return newTestAppWithStore(t, completer, st), st
}

func newTestAppWithStore(t *testing.T, completer Completer, st store.Store) *App {
	t.Helper()
	tokens, err := auth.NewTokenManager("test-secret-test-secret-test", time.Hour)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	a, err := New(Config{
		Store:           st,
		Completer:       completer,
		Tokens:          tokens,
		GenerationModel: "gemini-2.0-flash",
		Location:        time.UTC,
		Now:             func() time.Time { return time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a
}

func seedPatient(t *testing.T, a *App) domain.Patient {
	t.Helper()
	patient, _, err := a.Signup(SignupInput{
		Username:   "Mina",
		Email:      "mina@example.com",
		HospitalID: "H-1042",
		Modality:   domain.ModalityCAPD,
		Password:   "Str0ngPassword",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	return patient
}
