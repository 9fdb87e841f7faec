package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillm/trading-copilot/internal/domain"
	"github.com/kirillm/trading-copilot/internal/session"
	"github.com/kirillm/trading-copilot/pkg/utils"
)

// Server HTTP API для мониторинга сессий
type Server struct {
	logger     *utils.Logger
	controller *session.Controller
	port       int
}

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// NewServer создает HTTP сервер мониторинга
func NewServer(controller *session.Controller, port int, logger *utils.Logger) *Server {
	return &Server{
		logger:     logger,
		controller: controller,
		port:       port,
	}
}

// Start запускает HTTP сервер (блокирует)
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/sessions", s.handleSessions)
	mux.HandleFunc("/sessions/", s.handleSession)

	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("🌐 HTTP сервер запущен на %s", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.sendSuccess(w, map[string]interface{}{
		"status":          "healthy",
		"timestamp":       time.Now().Unix(),
		"active_sessions": len(s.controller.ListActive()),
	})
}

// handleSessions список активных сессий
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.sendSuccess(w, s.controller.ListActive())
}

// handleSession статус или остановка конкретной сессии.
// GET /sessions/{id} - статус, POST /sessions/{id}/stop - остановка.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/sessions/")

	if r.Method == http.MethodPost && strings.HasSuffix(path, "/stop") {
		id := strings.TrimSuffix(path, "/stop")
		stopped, err := s.controller.Stop(id)
		if err != nil {
			s.sendSessionError(w, err)
			return
		}
		s.sendSuccess(w, stopped)
		return
	}

	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status, err := s.controller.GetStatus(path)
	if err != nil {
		s.sendSessionError(w, err)
		return
	}
	s.sendSuccess(w, status)
}

func (s *Server) sendSessionError(w http.ResponseWriter, err error) {
	switch err {
	case domain.ErrSessionNotFound:
		s.sendError(w, err.Error(), http.StatusNotFound)
	case domain.ErrSessionNotActive:
		s.sendError(w, err.Error(), http.StatusConflict)
	default:
		s.sendError(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(Response{Success: true, Data: data})
}

func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(Response{Success: false, Error: message})
}
