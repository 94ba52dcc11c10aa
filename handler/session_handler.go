package handler

import (
	"net/http"

	"gestorreportes/models"
	"gestorreportes/service"
)

// SessionHandler exposes login, logout and the current identity
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler creates a session handler
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type adminLoginRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type userLoginRequest struct {
	Name string `json:"name"`
}

type sessionResponse struct {
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
	Session models.Session `json:"session"`
	IsAdmin bool           `json:"isAdmin"`
	IsUser  bool           `json:"isUser"`
}

func (h *SessionHandler) render(w http.ResponseWriter, res models.LoginResult) {
	status := http.StatusOK
	switch res.Error {
	case "":
	case service.LoginErrInvalidCode:
		status = http.StatusUnauthorized
	case service.LoginErrActive:
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
	}
	current := h.sessions.Current()
	respondWithJSON(w, status, sessionResponse{
		Success: res.Success,
		Error:   res.Error,
		Session: current,
		IsAdmin: current.IsAdmin(),
		IsUser:  current.IsUser(),
	})
}

// GetSession handles GET /api/v1/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.render(w, models.LoginResult{Success: true})
}

// LoginAdmin handles POST /api/v1/session/admin
func (h *SessionHandler) LoginAdmin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}
	h.render(w, h.sessions.Login(r.Context(), req.Code, req.Name))
}

// LoginUser handles POST /api/v1/session/user
func (h *SessionHandler) LoginUser(w http.ResponseWriter, r *http.Request) {
	var req userLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}
	h.render(w, h.sessions.LoginAsUser(r.Context(), req.Name))
}

// Logout handles POST /api/v1/session/logout. Always succeeds.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(r.Context())
	h.render(w, models.LoginResult{Success: true})
}
