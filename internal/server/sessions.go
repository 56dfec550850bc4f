package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/f-sync/igsync/internal/analyzer"
	"github.com/f-sync/igsync/internal/observability"
)

// DefaultSessionIdleTimeout is how long an unused session is kept when RouterConfig leaves the
// timeout unset.
const DefaultSessionIdleTimeout = 30 * time.Minute

// sessionEntry pairs an analyzer session with the last time its owner was seen.
type sessionEntry struct {
	session  *analyzer.Session
	lastSeen time.Time
}

// sessionStore tracks analyzer sessions keyed by their cookie identifier.
type sessionStore struct {
	mutex       sync.Mutex
	sessions    map[string]*sessionEntry
	idleTimeout time.Duration
	now         func() time.Time
}

// newSessionStore constructs a store with empty state.
func newSessionStore(idleTimeout time.Duration, now func() time.Time) *sessionStore {
	if idleTimeout <= 0 {
		idleTimeout = DefaultSessionIdleTimeout
	}
	if now == nil {
		now = time.Now
	}
	return &sessionStore{
		sessions:    make(map[string]*sessionEntry),
		idleTimeout: idleTimeout,
		now:         now,
	}
}

// Resolve returns the session registered under identifier, creating a fresh one with a new
// identifier when the identifier is unknown, malformed or expired.
func (store *sessionStore) Resolve(identifier string) (string, *analyzer.Session) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	currentTime := store.now()
	store.expireLocked(currentTime)

	if _, parseErr := uuid.Parse(identifier); parseErr == nil {
		if entry, exists := store.sessions[identifier]; exists {
			entry.lastSeen = currentTime
			return identifier, entry.session
		}
	}

	newIdentifier := uuid.NewString()
	entry := &sessionEntry{session: analyzer.NewSession(), lastSeen: currentTime}
	store.sessions[newIdentifier] = entry
	observability.ActiveSessions.Set(float64(len(store.sessions)))
	return newIdentifier, entry.session
}

// Len reports the number of live sessions.
func (store *sessionStore) Len() int {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	return len(store.sessions)
}

// expireLocked drops idle sessions that are not analyzing.
func (store *sessionStore) expireLocked(currentTime time.Time) {
	for identifier, entry := range store.sessions {
		if currentTime.Sub(entry.lastSeen) < store.idleTimeout {
			continue
		}
		if entry.session.Snapshot().State == analyzer.StateAnalyzing {
			continue
		}
		delete(store.sessions, identifier)
	}
	observability.ActiveSessions.Set(float64(len(store.sessions)))
}
