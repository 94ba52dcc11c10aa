package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"gestorreportes/kvstore"
	"gestorreportes/models"
	"gestorreportes/utils"
)

// Persisted session keys
const (
	KeyAdminCode = "@admin_code"
	KeyAdminName = "@admin_name"
	KeyUserName  = "@user_name"
	KeyMode      = "@mode"
)

const (
	defaultAdminName = "Admin"
	defaultUserName  = "Usuario"
)

// Login failure messages shown inline by the panel
const (
	LoginErrInvalidCode = "invalid code"
	LoginErrSaveFailed  = "could not save session"
	LoginErrActive      = "logout first"
)

// SessionService owns the process-wide identity. The in-memory copy is the
// source of truth once RestoreSession has run; the store only survives restarts.
type SessionService struct {
	store     kvstore.Store
	adminCode string

	mu      sync.RWMutex
	current models.Session
}

// NewSessionService creates a session service. adminCode is the shared admin secret.
func NewSessionService(store kvstore.Store, adminCode string) *SessionService {
	return &SessionService{store: store, adminCode: adminCode}
}

// Login opens an admin session when code matches the admin secret
func (s *SessionService) Login(ctx context.Context, code, name string) models.LoginResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.Mode != models.ModeNone {
		return models.LoginResult{Success: false, Error: LoginErrActive}
	}
	if code != s.adminCode {
		log.Printf("[session] admin login rejected")
		return models.LoginResult{Success: false, Error: LoginErrInvalidCode}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultAdminName
	}

	proof, err := utils.NewAdminProof(code)
	if err != nil {
		log.Printf("[session] failed to hash admin code: %v", err)
		return models.LoginResult{Success: false, Error: LoginErrSaveFailed}
	}
	if err := s.persist(ctx, map[string]string{
		KeyAdminCode: proof,
		KeyAdminName: name,
		KeyMode:      string(models.ModeAdmin),
	}); err != nil {
		log.Printf("[session] failed to save admin session: %v", err)
		return models.LoginResult{Success: false, Error: LoginErrSaveFailed}
	}

	s.current = models.Session{Mode: models.ModeAdmin, AdminName: name}
	log.Printf("[session] admin %s logged in", name)
	return models.LoginResult{Success: true}
}

// LoginAsUser opens an end-user session. There is no credential check.
func (s *SessionService) LoginAsUser(ctx context.Context, name string) models.LoginResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.Mode != models.ModeNone {
		return models.LoginResult{Success: false, Error: LoginErrActive}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultUserName
	}
	if err := s.persist(ctx, map[string]string{
		KeyUserName: name,
		KeyMode:     string(models.ModeUser),
	}); err != nil {
		log.Printf("[session] failed to save user session: %v", err)
		return models.LoginResult{Success: false, Error: LoginErrSaveFailed}
	}

	s.current = models.Session{Mode: models.ModeUser, UserName: name}
	log.Printf("[session] user %s logged in", name)
	return models.LoginResult{Success: true}
}

// Logout clears every persisted key. Store failures are logged, never
// returned, and the in-memory session is reset regardless.
func (s *SessionService) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range []string{KeyAdminCode, KeyAdminName, KeyUserName, KeyMode} {
		if err := s.store.Delete(ctx, key); err != nil {
			log.Printf("[session] failed to delete %s: %v", key, err)
		}
	}
	s.current = models.Session{}
	log.Printf("[session] logged out")
}

// RestoreSession loads the persisted session. @mode decides which mode comes
// back; an admin session also needs a proof matching the current admin secret.
func (s *SessionService) RestoreSession(ctx context.Context) models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	mode := s.read(ctx, KeyMode)
	proof := s.read(ctx, KeyAdminCode)
	adminName := s.read(ctx, KeyAdminName)
	userName := s.read(ctx, KeyUserName)

	adminOK := proof != "" && adminName != "" && utils.VerifyAdminProof(s.adminCode, proof)

	switch {
	case mode == string(models.ModeAdmin) && adminOK:
		s.current = models.Session{Mode: models.ModeAdmin, AdminName: adminName}
	case mode == string(models.ModeUser) && userName != "":
		s.current = models.Session{Mode: models.ModeUser, UserName: userName}
	default:
		s.current = models.Session{}
	}
	log.Printf("[session] restored mode=%q", s.current.Mode)
	return s.current
}

// Current returns a snapshot of the active session
func (s *SessionService) Current() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// IsAdmin reports whether the admin mode is active
func (s *SessionService) IsAdmin() bool { return s.Current().IsAdmin() }

// IsUser reports whether the end-user mode is active
func (s *SessionService) IsUser() bool { return s.Current().IsUser() }

// persist writes values in key order, @mode last. On the first failure the
// keys already written are removed again.
func (s *SessionService) persist(ctx context.Context, values map[string]string) error {
	var written []string
	for _, key := range []string{KeyAdminCode, KeyAdminName, KeyUserName, KeyMode} {
		v, ok := values[key]
		if !ok {
			continue
		}
		if err := s.store.Set(ctx, key, v); err != nil {
			for _, k := range written {
				if derr := s.store.Delete(ctx, k); derr != nil {
					log.Printf("[session] failed to roll back %s: %v", k, derr)
				}
			}
			return fmt.Errorf("failed to save %s: %w", key, err)
		}
		written = append(written, key)
	}
	return nil
}

func (s *SessionService) read(ctx context.Context, key string) string {
	v, ok, err := s.store.Get(ctx, key)
	if err != nil {
		log.Printf("[session] failed to read %s: %v", key, err)
		return ""
	}
	if !ok {
		return ""
	}
	return v
}
