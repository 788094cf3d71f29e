package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"careassist/internal/util"
	"careassist/pkg/ai"
	"careassist/pkg/domain"
)

const (
	rateLimitedReply = "The assistant is receiving too many requests right now. Please wait a moment and try again."
	safetyReply      = "That request could not be answered because it was flagged by the content safety filter. Try rephrasing your question."
	genericReply     = "Something went wrong while contacting the assistant. Please try again."
)

// ChatSession is one assistant conversation. All fields behind mu; the
// completion call itself runs unlocked so the session stays readable
// while a send is in flight.
type ChatSession struct {
	mu sync.Mutex

	ID        string
	PatientID string
	Mode      domain.AssistantMode
	Turns     []domain.ConversationTurn

	sending bool
	pending *domain.Attachment
}

// SessionView is a read-only snapshot of a session.
type SessionView struct {
	ID         string                    `json:"id"`
	Mode       domain.AssistantMode      `json:"mode"`
	Turns      []domain.ConversationTurn `json:"turns"`
	Sending    bool                      `json:"sending"`
	Attachment *domain.Attachment        `json:"attachment,omitempty"`
}

func (s *ChatSession) view() SessionView {
	turns := make([]domain.ConversationTurn, len(s.Turns))
	copy(turns, s.Turns)
	var att *domain.Attachment
	if s.pending != nil {
		c := *s.pending
		att = &c
	}
	return SessionView{
		ID:         s.ID,
		Mode:       s.Mode,
		Turns:      turns,
		Sending:    s.sending,
		Attachment: att,
	}
}

// sessionRegistry holds open sessions in memory. Conversations are
// ephemeral: closing a session or restarting the process discards them.
type sessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*ChatSession
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*ChatSession)}
}

func (r *sessionRegistry) add(s *ChatSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

func (r *sessionRegistry) get(id, patientID string) (*ChatSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok || s.PatientID != patientID {
		return nil, false
	}
	return s, true
}

func (r *sessionRegistry) remove(id, patientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.PatientID != patientID {
		return false
	}
	delete(r.sessions, id)
	return true
}

// OpenAssistantSession starts a new conversation in the given mode.
func (a *App) OpenAssistantSession(patientID string, mode domain.AssistantMode) (SessionView, error) {
	if mode == "" {
		mode = domain.ModeGeneral
	}
	if !mode.Valid() {
		return SessionView{}, invalidField("mode", "unknown assistant mode")
	}
	s := &ChatSession{
		ID:        util.NewID(),
		PatientID: patientID,
		Mode:      mode,
	}
	a.sessions.add(s)
	// The session is reachable through the registry from this point on,
	// so the snapshot needs the lock like everywhere else.
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(), nil
}

// AssistantSession returns a snapshot of the session, enforcing ownership.
func (a *App) AssistantSession(patientID, sessionID string) (SessionView, error) {
	s, ok := a.sessions.get(sessionID, patientID)
	if !ok {
		return SessionView{}, ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(), nil
}

// CloseAssistantSession discards the conversation.
func (a *App) CloseAssistantSession(patientID, sessionID string) error {
	if !a.sessions.remove(sessionID, patientID) {
		return ErrSessionNotFound
	}
	return nil
}

// SetAssistantMode switches the session's mode. The new mode applies from
// the next send; existing turns are kept.
func (a *App) SetAssistantMode(patientID, sessionID string, mode domain.AssistantMode) (SessionView, error) {
	if !mode.Valid() {
		return SessionView{}, invalidField("mode", "unknown assistant mode")
	}
	s, ok := a.sessions.get(sessionID, patientID)
	if !ok {
		return SessionView{}, ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Mode = mode
	return s.view(), nil
}

// StageAttachment reads an image into memory, base64-encodes it, and holds
// it as the session's pending attachment. A read failure aborts before any
// session state changes. Staging again replaces the previous attachment.
func (a *App) StageAttachment(patientID, sessionID, mimeType string, r io.Reader, maxBytes int64) (SessionView, error) {
	s, ok := a.sessions.get(sessionID, patientID)
	if !ok {
		return SessionView{}, ErrSessionNotFound
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return SessionView{}, invalidField("attachment", "only image attachments are accepted")
	}
	if maxBytes <= 0 {
		maxBytes = 8 << 20
	}
	raw, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return SessionView{}, fmt.Errorf("read attachment: %w", err)
	}
	if int64(len(raw)) > maxBytes {
		return SessionView{}, ErrAttachmentTooLarge
	}
	att := &domain.Attachment{
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(raw),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = att
	return s.view(), nil
}

// ClearAttachment drops the pending attachment without sending.
func (a *App) ClearAttachment(patientID, sessionID string) (SessionView, error) {
	s, ok := a.sessions.get(sessionID, patientID)
	if !ok {
		return SessionView{}, ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	return s.view(), nil
}

// SendAssistantMessage runs one turn of the conversation protocol. The
// user turn is appended optimistically before the remote call; every
// failure still produces an assistant turn, so the conversation never
// loses what the patient typed and never gets stuck mid-send. The pending
// attachment is consumed whether or not the call succeeds.
func (a *App) SendAssistantMessage(ctx context.Context, patientID, sessionID, text string) (SessionView, error) {
	s, ok := a.sessions.get(sessionID, patientID)
	if !ok {
		return SessionView{}, ErrSessionNotFound
	}
	text = strings.TrimSpace(text)

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return SessionView{}, ErrSendInFlight
	}
	if text == "" && s.pending == nil {
		s.mu.Unlock()
		return SessionView{}, ErrNothingToSend
	}
	attachment := s.pending
	s.pending = nil
	s.Turns = append(s.Turns, domain.ConversationTurn{
		Role:       domain.RoleUser,
		Text:       text,
		Attachment: attachment,
		CreatedAt:  a.now(),
	})
	s.sending = true
	mode := s.Mode
	history := make([]domain.ConversationTurn, len(s.Turns))
	copy(history, s.Turns)
	s.mu.Unlock()

	contents := a.buildContents(patientID, history, attachment)

	callCtx, cancel := context.WithTimeout(ctx, a.assistantTimeout)
	reply, err := a.completer.GenerateContent(callCtx, a.generationModel, systemPromptFor(mode), contents)
	cancel()
	if err != nil {
		reply = classifyAssistantError(err)
		slog.Warn("assistant completion failed", "session", sessionID, "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Turns = append(s.Turns, domain.ConversationTurn{
		Role:      domain.RoleAssistant,
		Text:      reply,
		CreatedAt: a.now(),
	})
	s.sending = false
	return s.view(), nil
}

// buildContents maps the conversation history to the completion request.
// Prior turns go over as plain text; the final user turn additionally
// carries the injected patient context and the staged image, if any.
func (a *App) buildContents(patientID string, history []domain.ConversationTurn, attachment *domain.Attachment) []ai.Content {
	contents := make([]ai.Content, 0, len(history))
	for i, turn := range history {
		role := ai.RoleUser
		if turn.Role == domain.RoleAssistant {
			role = ai.RoleModel
		}
		last := i == len(history)-1
		var parts []ai.Part
		if last {
			if injected := a.patientContext(patientID); injected != "" {
				parts = append(parts, ai.Part{Text: injected})
			}
			if attachment != nil {
				parts = append(parts, ai.Part{InlineData: &ai.InlineData{
					Data:     attachment.Data,
					MimeType: attachment.MimeType,
				}})
			}
		}
		if turn.Text != "" || len(parts) == 0 {
			parts = append(parts, ai.Part{Text: turn.Text})
		}
		contents = append(contents, ai.Content{Role: role, Parts: parts})
	}
	return contents
}

// patientContext fetches the patient's latest exchange and formats it as
// grounding for the model. Strictly best effort: any failure logs and
// returns empty, it never blocks a send.
func (a *App) patientContext(patientID string) string {
	entry, ok, err := a.store.LatestEntry(patientID)
	if err != nil {
		slog.Warn("context injection skipped", "patient", patientID, "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	weight := "n/a"
	if entry.WeightKg != nil {
		weight = fmt.Sprintf("%.1f kg", *entry.WeightKg)
	}
	return fmt.Sprintf(
		"[injected session data] Latest exchange on %s: dialysate %s, fill %.0f mL, drain %.0f mL, ultrafiltration %.0f mL, weight %s.",
		entry.Timestamp.Format("2006-01-02 15:04"),
		entry.DialysateStrength,
		entry.FillVolumeMl,
		entry.DrainVolumeMl,
		entry.UFMl,
		weight,
	)
}

// classifyAssistantError maps remote failures to the three user-facing
// replies. Rate limiting and safety blocks get specific wording; anything
// else gets the generic retry message.
func classifyAssistantError(err error) string {
	var safety *ai.SafetyBlockedError
	switch {
	case errors.Is(err, ai.ErrRateLimited):
		return rateLimitedReply
	case errors.As(err, &safety):
		return safetyReply
	default:
		return genericReply
	}
}
