package server

import (
	"testing"
	"time"
)

type manualClock struct {
	current time.Time
}

func (clock *manualClock) Now() time.Time {
	return clock.current
}

func TestSessionStoreResolve(t *testing.T) {
	clock := &manualClock{current: time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)}
	store := newSessionStore(time.Minute, clock.Now)

	identifier, session := store.Resolve("")
	if identifier == "" || session == nil {
		t.Fatalf("expected a new session")
	}

	sameIdentifier, sameSession := store.Resolve(identifier)
	if sameIdentifier != identifier || sameSession != session {
		t.Fatalf("expected known identifier to resolve to the same session")
	}

	forgedIdentifier, forgedSession := store.Resolve("not-a-uuid")
	if forgedIdentifier == "not-a-uuid" || forgedSession == session {
		t.Fatalf("expected malformed identifier to receive a fresh session")
	}
	if store.Len() != 2 {
		t.Fatalf("expected two sessions, got %d", store.Len())
	}

	clock.current = clock.current.Add(2 * time.Minute)
	renewedIdentifier, renewedSession := store.Resolve(identifier)
	if renewedIdentifier == identifier || renewedSession == session {
		t.Fatalf("expected expired session to be replaced")
	}
	if store.Len() != 1 {
		t.Fatalf("expected expired sessions to be dropped, got %d", store.Len())
	}
}

func TestSessionStoreKeepsAnalyzingSessions(t *testing.T) {
	clock := &manualClock{current: time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)}
	store := newSessionStore(time.Minute, clock.Now)

	identifier, session := store.Resolve("")
	if _, err := session.Begin(nil); err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}

	clock.current = clock.current.Add(time.Hour)
	resolvedIdentifier, resolvedSession := store.Resolve(identifier)
	if resolvedIdentifier != identifier || resolvedSession != session {
		t.Fatalf("expected analyzing session to survive idle expiry")
	}
}

func TestClientLimiter(t *testing.T) {
	limiter := newClientLimiter(0.001, 2, time.Minute, nil)
	if !limiter.Allow("192.0.2.1") || !limiter.Allow("192.0.2.1") {
		t.Fatalf("expected burst to be allowed")
	}
	if limiter.Allow("192.0.2.1") {
		t.Fatalf("expected third request to be limited")
	}
	if !limiter.Allow("192.0.2.2") {
		t.Fatalf("expected other clients to keep their own budget")
	}
}

func TestClientLimiterEvictsIdleClients(t *testing.T) {
	clock := &manualClock{current: time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)}
	limiter := newClientLimiter(1, 2, time.Minute, clock.Now)

	for _, clientKey := range []string{"192.0.2.1", "192.0.2.2", "192.0.2.3"} {
		limiter.Allow(clientKey)
	}
	if limiter.Len() != 3 {
		t.Fatalf("expected three tracked clients, got %d", limiter.Len())
	}

	clock.current = clock.current.Add(30 * time.Second)
	limiter.Allow("192.0.2.1")
	clock.current = clock.current.Add(45 * time.Second)
	limiter.Allow("192.0.2.4")
	if limiter.Len() != 2 {
		t.Fatalf("expected idle clients to be evicted, got %d tracked", limiter.Len())
	}
}

func TestClientLimiterKeepsBucketsUntilRefilled(t *testing.T) {
	clock := &manualClock{current: time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)}
	limiter := newClientLimiter(0.01, 1, time.Minute, clock.Now)

	if !limiter.Allow("192.0.2.1") {
		t.Fatalf("expected first request to be allowed")
	}
	clock.current = clock.current.Add(80 * time.Second)
	if limiter.Allow("192.0.2.1") {
		t.Fatalf("expected bucket to stay empty before it refills")
	}
}
