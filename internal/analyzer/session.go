package analyzer

import (
	"context"
	"errors"
	"sync"

	"github.com/f-sync/igsync/internal/unfollow"
)

// State represents the lifecycle position of a Session.
type State string

const (
	// StateIdle means no sources, result or error are held.
	StateIdle State = "idle"
	// StateAnalyzing means an analysis is in flight.
	StateAnalyzing State = "analyzing"
	// StateResult means the last analysis succeeded.
	StateResult State = "result"
	// StateError means the last analysis failed.
	StateError State = "error"
)

// Ticket identifies the analysis started by Begin. Outcomes recorded with a stale ticket are dropped.
type Ticket struct {
	generation uint64
}

// Session owns the state of one user's analyzer: idle → analyzing → {result | error}, with Reset
// returning to idle from any state.
type Session struct {
	mutex      sync.Mutex
	state      State
	uploads    []unfollow.UploadSummary
	result     *unfollow.AnalysisResult
	err        error
	generation uint64
	previous   sessionContents
}

// sessionContents is the state Begin replaced, restored by Abandon.
type sessionContents struct {
	state   State
	uploads []unfollow.UploadSummary
	result  *unfollow.AnalysisResult
	err     error
}

// SessionSnapshot copies the observable portions of a Session.
type SessionSnapshot struct {
	State   State
	Uploads []unfollow.UploadSummary
	Result  *unfollow.AnalysisResult
	Err     error
}

// NewSession constructs an idle session.
func NewSession() *Session {
	return &Session{state: StateIdle}
}

// Begin moves the session into the analyzing state. It fails with ErrAnalysisInProgress while
// another analysis is running.
func (session *Session) Begin(uploads []unfollow.UploadSummary) (Ticket, error) {
	session.mutex.Lock()
	defer session.mutex.Unlock()

	if session.state == StateAnalyzing {
		return Ticket{}, ErrAnalysisInProgress
	}
	session.previous = sessionContents{
		state:   session.state,
		uploads: session.uploads,
		result:  session.result,
		err:     session.err,
	}
	session.generation++
	session.state = StateAnalyzing
	session.uploads = cloneUploads(uploads)
	session.result = nil
	session.err = nil
	return Ticket{generation: session.generation}, nil
}

// Complete records a successful result. It reports false when the ticket is stale.
func (session *Session) Complete(ticket Ticket, result unfollow.AnalysisResult) bool {
	session.mutex.Lock()
	defer session.mutex.Unlock()

	if !session.isCurrentLocked(ticket) {
		return false
	}
	storedResult := cloneResult(result)
	session.state = StateResult
	session.result = &storedResult
	session.err = nil
	return true
}

// Fail records a failed analysis. It reports false when the ticket is stale.
func (session *Session) Fail(ticket Ticket, err error) bool {
	session.mutex.Lock()
	defer session.mutex.Unlock()

	if !session.isCurrentLocked(ticket) {
		return false
	}
	session.state = StateError
	session.result = nil
	session.err = err
	return true
}

// Abandon restores the state that Begin replaced, as if the analysis had never started. It reports
// false when the ticket is stale.
func (session *Session) Abandon(ticket Ticket) bool {
	session.mutex.Lock()
	defer session.mutex.Unlock()

	if !session.isCurrentLocked(ticket) {
		return false
	}
	session.state = session.previous.state
	session.uploads = session.previous.uploads
	session.result = session.previous.result
	session.err = session.previous.err
	session.previous = sessionContents{}
	return true
}

// RecordFailure stores a failure detected before any document could be handed to an
// Orchestrator, such as an unreadable request body. It fails with ErrAnalysisInProgress while
// another analysis is running.
func (session *Session) RecordFailure(uploads []unfollow.UploadSummary, err error) error {
	ticket, beginErr := session.Begin(uploads)
	if beginErr != nil {
		return beginErr
	}
	session.Fail(ticket, err)
	return nil
}

// Reset clears uploads, result and error and invalidates any in-flight ticket.
func (session *Session) Reset() {
	session.mutex.Lock()
	defer session.mutex.Unlock()

	session.generation++
	session.previous = sessionContents{}
	session.state = StateIdle
	session.uploads = nil
	session.result = nil
	session.err = nil
}

// Snapshot returns a copy of the session state for external observers.
func (session *Session) Snapshot() SessionSnapshot {
	session.mutex.Lock()
	defer session.mutex.Unlock()

	snapshot := SessionSnapshot{
		State:   session.state,
		Uploads: cloneUploads(session.uploads),
		Err:     session.err,
	}
	if session.result != nil {
		storedResult := cloneResult(*session.result)
		snapshot.Result = &storedResult
	}
	return snapshot
}

// RunAnalysis drives one analysis through the session: Begin, Orchestrator.Run, then Complete or
// Fail. Outcomes of analyses superseded by Reset are returned to the caller but not stored. An
// analysis canceled by ctx is abandoned, leaving the session as it was before the call.
func (session *Session) RunAnalysis(ctx context.Context, orchestrator *Orchestrator, request Request, uploads []unfollow.UploadSummary) (unfollow.AnalysisResult, error) {
	ticket, err := session.Begin(uploads)
	if err != nil {
		return unfollow.AnalysisResult{}, err
	}
	result, err := orchestrator.Run(ctx, request)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		session.Abandon(ticket)
		return unfollow.AnalysisResult{}, err
	}
	if err != nil {
		session.Fail(ticket, err)
		return unfollow.AnalysisResult{}, err
	}
	session.Complete(ticket, result)
	return result, nil
}

func (session *Session) isCurrentLocked(ticket Ticket) bool {
	return session.state == StateAnalyzing && ticket.generation == session.generation
}

func cloneUploads(uploads []unfollow.UploadSummary) []unfollow.UploadSummary {
	if len(uploads) == 0 {
		return nil
	}
	cloned := make([]unfollow.UploadSummary, len(uploads))
	copy(cloned, uploads)
	return cloned
}

func cloneResult(result unfollow.AnalysisResult) unfollow.AnalysisResult {
	cloned := result
	cloned.Unfollowers = make([]string, len(result.Unfollowers))
	copy(cloned.Unfollowers, result.Unfollowers)
	return cloned
}
