// Package store holds the in-memory collection of wallet sessions plus the
// single active pointer and the global loading/error flags. It is a pure
// data container: no I/O, no protocol calls. All reads return copies so
// callers never alias the store's internal records.
package store

import (
	"sync"

	apperrors "github.com/tidewallet/tidewallet/pkg/errors"
	"github.com/tidewallet/tidewallet/pkg/types"
)

// SessionStore is constructed once at app start and passed by reference to
// the lifecycle manager and signing coordinator. Fresh instances per test
// give full isolation.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*types.WalletSession
	order    []string // session ids in insertion order
	activeID string
	loading  bool
	lastErr  string
}

// New creates an empty SessionStore.
func New() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*types.WalletSession),
	}
}

// SessionPatch is a partial update merged into an existing session.
// Nil fields are left untouched.
type SessionPatch struct {
	Label          *string
	AuthToken      *string
	WalletName     *string
	Icon           *string
	Status         *types.SessionStatus
	LastActivityAt *int64
	ErrorMessage   *string
}

// AddSession inserts a session keyed by its SessionID.
// Session ids are unique by construction; a duplicate id is a caller bug.
func (s *SessionStore) AddSession(sess *types.WalletSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.SessionID]; exists {
		return apperrors.NewWithDetail(apperrors.ErrCodeBadRequest, "Duplicate session id", sess.SessionID)
	}

	cp := *sess
	s.sessions[sess.SessionID] = &cp
	s.order = append(s.order, sess.SessionID)
	return nil
}

// RemoveSession deletes a session. If the removed session was active, the
// active pointer is cleared so it never dangles. Returns false if the id
// was not present.
func (s *SessionStore) RemoveSession(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[id]; !exists {
		return false
	}

	delete(s.sessions, id)
	for i, sid := range s.order {
		if sid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.activeID == id {
		s.activeID = ""
	}
	return true
}

// UpdateSession merges a patch into an existing session.
func (s *SessionStore) UpdateSession(id string, patch SessionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[id]
	if !exists {
		return apperrors.SessionNotFound(id)
	}

	if patch.Label != nil {
		sess.Label = *patch.Label
	}
	if patch.AuthToken != nil {
		sess.AuthToken = *patch.AuthToken
	}
	if patch.WalletName != nil {
		sess.WalletName = *patch.WalletName
	}
	if patch.Icon != nil {
		sess.Icon = *patch.Icon
	}
	if patch.Status != nil {
		sess.Status = *patch.Status
	}
	if patch.LastActivityAt != nil {
		sess.LastActivityAt = *patch.LastActivityAt
	}
	if patch.ErrorMessage != nil {
		sess.ErrorMessage = *patch.ErrorMessage
	}
	return nil
}

// SetActiveSession points the active pointer at an existing session.
func (s *SessionStore) SetActiveSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[id]; !exists {
		return apperrors.SessionNotFound(id)
	}
	s.activeID = id
	return nil
}

// ClearActiveSession resets the active pointer.
func (s *SessionStore) ClearActiveSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = ""
}

// ActiveSessionID returns the current active session id, or "".
func (s *SessionStore) ActiveSessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// GetSession returns a copy of the session with the given id.
func (s *SessionStore) GetSession(id string) (*types.WalletSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, exists := s.sessions[id]
	if !exists {
		return nil, false
	}
	cp := *sess
	return &cp, true
}

// GetSessionByAddress returns the best match for an address. Multiple
// sessions may share one address (re-added wallets); the most recently
// active wins, and connected sessions win ties against revoked ones.
func (s *SessionStore) GetSessionByAddress(address string) (*types.WalletSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *types.WalletSession
	for _, id := range s.order {
		sess := s.sessions[id]
		if sess.Address != address {
			continue
		}
		if best == nil || sess.LastActivityAt > best.LastActivityAt ||
			(sess.LastActivityAt == best.LastActivityAt && sess.Status == types.StatusConnected && best.Status != types.StatusConnected) {
			best = sess
		}
	}
	if best == nil {
		return nil, false
	}
	cp := *best
	return &cp, true
}

// GetAllSessions returns copies of all sessions in insertion order.
func (s *SessionStore) GetAllSessions() []*types.WalletSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.WalletSession, 0, len(s.order))
	for _, id := range s.order {
		cp := *s.sessions[id]
		out = append(out, &cp)
	}
	return out
}

// ActiveSession returns a copy of the active session, if one is set.
func (s *SessionStore) ActiveSession() (*types.WalletSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.activeID == "" {
		return nil, false
	}
	cp := *s.sessions[s.activeID]
	return &cp, true
}

// WalletCount returns the number of sessions in the store.
func (s *SessionStore) WalletCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Clear removes every session and resets the active pointer and error flag.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make(map[string]*types.WalletSession)
	s.order = nil
	s.activeID = ""
	s.lastErr = ""
}

// SetLoading flips the global loading flag observed by the UI.
func (s *SessionStore) SetLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = v
}

// Loading reports the global loading flag.
func (s *SessionStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// SetLastError records the most recent user-visible error message.
func (s *SessionStore) SetLastError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = msg
}

// LastError returns the most recent user-visible error message.
func (s *SessionStore) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}
