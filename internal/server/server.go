// Package server exposes the HTTP API: auth, exchange recording and
// aggregation, and assistant sessions.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"careassist/internal/app"
	"careassist/internal/ratelimit"
	"careassist/internal/util"
	"careassist/pkg/auth"
	"careassist/pkg/domain"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App           *app.App
	TokenVerifier *auth.TokenManager

	// Limiters are optional; a nil limiter disables that class of limiting.
	SignupLimiter    *ratelimit.FixedWindowLimiter
	LoginLimiter     *ratelimit.FixedWindowLimiter
	AssistantLimiter *ratelimit.FixedWindowLimiter

	TrustedProxies *util.TrustedProxies
	MaxUploadBytes int64
}

// Server exposes the HTTP endpoints.
type Server struct {
	app           *app.App
	tokenVerifier *auth.TokenManager

	signupLimiter    *ratelimit.FixedWindowLimiter
	loginLimiter     *ratelimit.FixedWindowLimiter
	assistantLimiter *ratelimit.FixedWindowLimiter

	trustedProxies *util.TrustedProxies
	maxUploadBytes int64
	mux            *http.ServeMux
}

const defaultMaxUploadBytes = 8 << 20

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:              cfg.App,
		tokenVerifier:    cfg.TokenVerifier,
		signupLimiter:    cfg.SignupLimiter,
		loginLimiter:     cfg.LoginLimiter,
		assistantLimiter: cfg.AssistantLimiter,
		trustedProxies:   cfg.TrustedProxies,
		maxUploadBytes:   cfg.MaxUploadBytes,
		mux:              http.NewServeMux(),
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = defaultMaxUploadBytes
	}
	s.routes()
	return s
}

// Router returns the configured handler with middleware applied.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(util.WithRequestID(util.WithRequestLog(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.Handle("POST /api/auth/signup", s.withLimit(s.signupLimiter, "signup", http.HandlerFunc(s.handleSignup)))
	s.mux.Handle("POST /api/auth/login", s.withLimit(s.loginLimiter, "login", http.HandlerFunc(s.handleLogin)))
	s.mux.Handle("GET /api/me", s.withPatient(s.handleMe))

	s.mux.Handle("POST /api/exchanges", s.withPatient(s.handleCreateExchange))
	s.mux.Handle("POST /api/exchanges/image", s.withPatient(s.handleUploadImage))
	s.mux.Handle("GET /api/exchanges/today", s.withPatient(s.handleToday))
	s.mux.Handle("GET /api/exchanges/average", s.withPatient(s.handleAverage))
	s.mux.Handle("GET /api/exchanges/trend", s.withPatient(s.handleTrend))
	s.mux.Handle("GET /api/dashboard", s.withPatient(s.handleDashboard))

	s.mux.Handle("POST /api/assistant/sessions", s.withPatient(s.handleOpenSession))
	s.mux.Handle("GET /api/assistant/sessions/{id}", s.withPatient(s.handleGetSession))
	s.mux.Handle("DELETE /api/assistant/sessions/{id}", s.withPatient(s.handleCloseSession))
	s.mux.Handle("POST /api/assistant/sessions/{id}/mode", s.withPatient(s.handleSetMode))
	s.mux.Handle("POST /api/assistant/sessions/{id}/attachment", s.withPatient(s.handleStageAttachment))
	s.mux.Handle("DELETE /api/assistant/sessions/{id}/attachment", s.withPatient(s.handleClearAttachment))
	s.mux.Handle("POST /api/assistant/sessions/{id}/messages", s.withPatient(s.handleSendMessage))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type patientHandler func(http.ResponseWriter, *http.Request, string)

// withPatient authenticates the bearer token and passes the patient ID to
// the handler.
func (s *Server) withPatient(next patientHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		patientID, err := s.tokenVerifier.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, patientID)
	})
}

func (s *Server) withLimit(limiter *ratelimit.FixedWindowLimiter, class string, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := class + ":" + util.ClientIP(r, s.trustedProxies)
		if !limiter.Allow(key) {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type signupRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	HospitalID string `json:"hospitalId"`
	Modality   string `json:"modality"`
	Password   string `json:"password"`
}

type sessionResponse struct {
	Patient domain.Patient `json:"patient"`
	Token   string         `json:"token"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	patient, token, err := s.app.Signup(app.SignupInput{
		Username:   req.Username,
		Email:      req.Email,
		HospitalID: req.HospitalID,
		Modality:   domain.Modality(req.Modality),
		Password:   req.Password,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Patient: patient, Token: token})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	patient, token, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Patient: patient, Token: token})
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request, patientID string) {
	patient, err := s.app.Profile(patientID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, patient)
}

type exchangeRequest struct {
	Timestamp         *time.Time      `json:"timestamp"`
	DialysateStrength string          `json:"dialysateStrength"`
	BagVolumeMl       float64         `json:"bagVolumeMl"`
	LeftoverMl        float64         `json:"leftoverMl"`
	DrainVolumeMl     float64         `json:"drainVolumeMl"`
	WeightKg          *float64        `json:"weightKg"`
	Notes             string          `json:"notes"`
	Symptoms          map[string]bool `json:"symptoms"`
	ImageURL          string          `json:"imageUrl"`
}

func (s *Server) handleCreateExchange(w http.ResponseWriter, r *http.Request, patientID string) {
	var req exchangeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	entry, err := s.app.RecordExchange(patientID, app.ExchangeInput{
		Timestamp:         req.Timestamp,
		DialysateStrength: domain.DialysateStrength(req.DialysateStrength),
		BagVolumeMl:       req.BagVolumeMl,
		LeftoverMl:        req.LeftoverMl,
		DrainVolumeMl:     req.DrainVolumeMl,
		WeightKg:          req.WeightKg,
		Notes:             req.Notes,
		Symptoms:          req.Symptoms,
		ImageURL:          req.ImageURL,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request, patientID string) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()
	url, err := s.app.UploadDrainImage(r.Context(), patientID, header.Filename, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"imageUrl": url})
}

func (s *Server) handleToday(w http.ResponseWriter, _ *http.Request, patientID string) {
	sum, err := s.app.TodaySummary(patientID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleAverage(w http.ResponseWriter, r *http.Request, patientID string) {
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		switch raw {
		case "7":
			days = 7
		case "30":
			days = 30
		default:
			writeError(w, http.StatusBadRequest, "days must be 7 or 30")
			return
		}
	}
	avg, err := s.app.WindowAverage(patientID, days)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, avg)
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request, patientID string) {
	window := domain.WindowLast7Days
	if raw := r.URL.Query().Get("window"); raw != "" {
		window = domain.TrendWindow(raw)
	}
	trend, err := s.app.Trend(patientID, window)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trend)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, patientID string) {
	dash, err := s.app.Dashboard(r.Context(), patientID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

type openSessionRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request, patientID string) {
	var req openSessionRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	view, err := s.app.OpenAssistantSession(patientID, domain.AssistantMode(req.Mode))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, patientID string) {
	view, err := s.app.AssistantSession(patientID, r.PathValue("id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request, patientID string) {
	if err := s.app.CloseAssistantSession(patientID, r.PathValue("id")); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

type modeRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request, patientID string) {
	var req modeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := s.app.SetAssistantMode(patientID, r.PathValue("id"), domain.AssistantMode(req.Mode))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleStageAttachment(w http.ResponseWriter, r *http.Request, patientID string) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()
	view, err := s.app.StageAttachment(patientID, r.PathValue("id"), header.Header.Get("Content-Type"), file, s.maxUploadBytes)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleClearAttachment(w http.ResponseWriter, r *http.Request, patientID string) {
	view, err := s.app.ClearAttachment(patientID, r.PathValue("id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type messageRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, patientID string) {
	if s.assistantLimiter != nil {
		key := "assistant:" + util.ClientIP(r, s.trustedProxies)
		if !s.assistantLimiter.Allow(key) {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
	}
	var req messageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := s.app.SendAssistantMessage(r.Context(), patientID, r.PathValue("id"), req.Text)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// writeAppError maps application errors to HTTP statuses.
func writeAppError(w http.ResponseWriter, err error) {
	var verr *app.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, app.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrPatientNotFound), errors.Is(err, app.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrSendInFlight):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrNothingToSend):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrAttachmentTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}
