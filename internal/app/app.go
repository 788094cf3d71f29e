// Package app holds the application core: exchange recording and
// aggregation, and the assistant conversation protocol.
package app

import (
	"context"
	"fmt"
	"time"

	"careassist/pkg/ai"
	"careassist/pkg/auth"
	"careassist/pkg/storage"
	"careassist/pkg/store"
)

const defaultAssistantTimeout = 30 * time.Second

// Completer is the remote completion endpoint used by the assistant.
type Completer interface {
	GenerateContent(ctx context.Context, model, systemInstruction string, contents []ai.Content) (string, error)
}

// Config wires the application's collaborators. Store and Completer are
// injected explicitly; there are no process-wide singletons.
type Config struct {
	Store     store.Store
	Images    storage.ImageStore
	Completer Completer
	Tokens    *auth.TokenManager

	GenerationModel  string
	AssistantTimeout time.Duration

	// Location is the civil-time zone for daily aggregation boundaries.
	Location *time.Location

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// App is the application core.
type App struct {
	store     store.Store
	images    storage.ImageStore
	completer Completer
	tokens    *auth.TokenManager

	generationModel  string
	assistantTimeout time.Duration
	location         *time.Location
	now              func() time.Time

	sessions *sessionRegistry
}

// New constructs the application and verifies static tables.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if cfg.Completer == nil {
		return nil, fmt.Errorf("completer required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token manager required")
	}
	if cfg.GenerationModel == "" {
		return nil, fmt.Errorf("generation model required")
	}
	if err := verifySystemPrompts(); err != nil {
		return nil, err
	}
	timeout := cfg.AssistantTimeout
	if timeout <= 0 {
		timeout = defaultAssistantTimeout
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &App{
		store:            cfg.Store,
		images:           cfg.Images,
		completer:        cfg.Completer,
		tokens:           cfg.Tokens,
		generationModel:  cfg.GenerationModel,
		assistantTimeout: timeout,
		location:         loc,
		now:              now,
		sessions:         newSessionRegistry(),
	}, nil
}
