package session

import "sync"

// State tracks where a user is within a multi-turn flow.
type State int

const (
	Idle State = iota
	AwaitingUploadFile
	AwaitingUploadPath
	AwaitingDownloadPath
)

// Payload carries transient data between flow turns. During an upload it holds
// the Telegram file reference received in the first turn.
type Payload struct {
	FileID   string
	FileName string
}

// Session is one user's flow state. The zero value is an idle session.
type Session struct {
	State   State
	Payload Payload
}

// Store maps user IDs to sessions. Entries exist only while a flow is active;
// an absent entry is equivalent to Idle.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[int64]Session)}
}

// Get returns the user's session, or an idle session if none exists.
func (s *Store) Get(userID int64) Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sessions[userID]
}

// Set replaces the user's session state and payload.
func (s *Store) Set(userID int64, state State, payload Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[userID] = Session{State: state, Payload: payload}
}

// Clear resets the user to Idle and discards any payload.
func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
}
