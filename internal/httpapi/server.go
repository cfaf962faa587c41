package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/sajjadurrahman1/Wealth-Navigator/internal/assistant"
	"github.com/sajjadurrahman1/Wealth-Navigator/internal/config"
	"github.com/sajjadurrahman1/Wealth-Navigator/internal/finance"
	"github.com/sajjadurrahman1/Wealth-Navigator/internal/observability"
	"github.com/sajjadurrahman1/Wealth-Navigator/internal/prefs"
	"github.com/sajjadurrahman1/Wealth-Navigator/internal/store"
)

// Assistant answers one utterance in a conversation.
type Assistant interface {
	Handle(ctx context.Context, conversationID, utterance string, profile assistant.Profile) (store.Message, error)
	Capabilities() assistant.Capabilities
}

type Server struct {
	cfg       config.Config
	store     store.Store
	prefs     prefs.Store
	assistant Assistant
	metrics   *observability.Metrics
	indexSize int
	upgrader  websocket.Upgrader
}

func New(cfg config.Config, st store.Store, pf prefs.Store, asst Assistant, metrics *observability.Metrics, indexSize int) *Server {
	return &Server{
		cfg:       cfg,
		store:     st,
		prefs:     pf,
		assistant: asst,
		metrics:   metrics,
		indexSize: indexSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same
				// origin unless explicitly opened up. Non-browser clients
				// omit Origin and are allowed.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/api/conversations", s.handleCreateConversation)
	r.Get("/api/conversations", s.handleListConversations)
	r.Patch("/api/conversations/{id}", s.handleRenameConversation)
	r.Delete("/api/conversations/{id}", s.handleDeleteConversation)
	r.Get("/api/conversations/{id}/messages", s.handleListMessages)
	r.Post("/api/conversations/{id}/messages", s.handlePostMessage)
	r.Get("/api/preferences/{key}", s.handleGetPreference)
	r.Put("/api/preferences/{key}", s.handlePutPreference)
	r.Get("/ws", s.handleWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"capabilities": s.assistant.Capabilities(),
		"index_chunks": s.indexSize,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

type conversationRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req conversationRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		req.Title = "New conversation"
	}
	conv, err := s.store.CreateConversation(r.Context(), req.Title)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	s.metrics.ActiveConversations.Inc()
	respondJSON(w, http.StatusCreated, conv)
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := s.store.ListConversations(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	if convs == nil {
		convs = []store.Conversation{}
	}
	respondJSON(w, http.StatusOK, convs)
}

func (s *Server) handleRenameConversation(w http.ResponseWriter, r *http.Request) {
	var req conversationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		respondError(w, http.StatusBadRequest, "invalid_title", "title must not be empty")
		return
	}
	if err := s.store.RenameConversation(r.Context(), chi.URLParam(r, "id"), req.Title); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteConversation(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondStoreError(w, err)
		return
	}
	s.metrics.ActiveConversations.Dec()
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.store.ListMessages(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if msgs == nil {
		msgs = []store.Message{}
	}
	respondJSON(w, http.StatusOK, msgs)
}

type profilePayload struct {
	MonthlyIncome float64            `json:"monthly_income"`
	Steuerklasse  string             `json:"steuerklasse"`
	Expenses      map[string]float64 `json:"expenses"`
	GoalAmount    float64            `json:"goal_amount"`
	GoalMonths    int                `json:"goal_months"`
	Currency      string             `json:"currency"`
}

type postMessageRequest struct {
	Text    string         `json:"text"`
	Profile profilePayload `json:"profile"`
}

func (p profilePayload) toProfile() (assistant.Profile, error) {
	class := finance.ClassI
	if strings.TrimSpace(p.Steuerklasse) != "" {
		parsed, err := finance.ParseClass(p.Steuerklasse)
		if err != nil {
			return assistant.Profile{}, err
		}
		class = parsed
	}
	return assistant.Profile{
		MonthlyIncome: p.MonthlyIncome,
		Steuerklasse:  class,
		Expenses:      p.Expenses,
		GoalAmount:    p.GoalAmount,
		GoalMonths:    p.GoalMonths,
		Currency:      p.Currency,
	}, nil
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var req postMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "invalid_text", "text must not be empty")
		return
	}
	profile, err := req.Profile.toProfile()
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_profile", err.Error())
		return
	}
	msg, err := s.assistant.Handle(r.Context(), chi.URLParam(r, "id"), req.Text, profile)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, msg)
}

type preferenceRequest struct {
	Value      string `json:"value"`
	TTLSeconds int64  `json:"ttl_seconds,omitempty"`
}

func (s *Server) handleGetPreference(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, err := s.prefs.Get(r.Context(), key)
	if errors.Is(err, prefs.ErrNotFound) {
		respondError(w, http.StatusNotFound, "preference_not_found", "no value for key "+key)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "prefs_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
}

func (s *Server) handlePutPreference(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req preferenceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.TTLSeconds < 0 {
		respondError(w, http.StatusBadRequest, "invalid_ttl", "ttl_seconds must not be negative")
		return
	}
	ttl := time.Duration(req.TTLSeconds) * time.Second
	if err := s.prefs.Set(r.Context(), key, req.Value, ttl); err != nil {
		respondError(w, http.StatusInternalServerError, "prefs_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"key": key, "value": req.Value})
}

// handleWS serves a chat connection: the client sends one JSON request per
// message and receives the stored assistant turn back on the same socket.
// Requests on one connection are handled strictly in order.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conversationID := strings.TrimSpace(r.URL.Query().Get("conversation_id"))
	if conversationID == "" {
		respondError(w, http.StatusBadRequest, "missing_conversation_id", "query parameter conversation_id is required")
		return
	}
	if _, err := s.store.ListMessages(r.Context(), conversationID); err != nil {
		respondStoreError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		var req postMessageRequest
		if err := json.Unmarshal(data, &req); err != nil {
			s.writeWSError(conn, "invalid_client_message", err.Error())
			continue
		}
		if strings.TrimSpace(req.Text) == "" {
			s.writeWSError(conn, "invalid_text", "text must not be empty")
			continue
		}
		profile, err := req.Profile.toProfile()
		if err != nil {
			s.writeWSError(conn, "invalid_profile", err.Error())
			continue
		}
		msg, err := s.assistant.Handle(r.Context(), conversationID, req.Text, profile)
		if err != nil {
			s.writeWSError(conn, "handle_failed", err.Error())
			continue
		}
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (s *Server) writeWSError(conn *websocket.Conn, code, detail string) {
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	_ = conn.WriteJSON(errorResponse{Error: detail, Code: code})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, msg string) {
	respondJSON(w, status, errorResponse{Error: msg, Code: code})
}

func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "conversation_not_found", err.Error())
	case errors.Is(err, finance.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "invalid_input", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
