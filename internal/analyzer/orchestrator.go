package analyzer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/f-sync/igsync/internal/observability"
	"github.com/f-sync/igsync/internal/unfollow"
)

const (
	logMessageAnalysisStarted   = "analysis started"
	logMessageAnalysisCompleted = "analysis completed"
	logMessageAnalysisFailed    = "analysis failed"
	logMessageAnalysisDiscarded = "analysis discarded after cancellation"
	logMessageDocumentRead      = "document read"
	logFieldRole                = "role"
	logFieldDocument            = "document"
	logFieldBytes               = "bytes"
	logFieldFollowersCount      = "followers_count"
	logFieldFollowingCount      = "following_count"
	logFieldUnfollowersCount    = "unfollowers_count"
	logFieldErrorKind           = "error_kind"
	logFieldDuration            = "duration"
)

// Request names the two documents of one analysis. A nil source counts as missing.
type Request struct {
	Followers DocumentSource
	Following DocumentSource
}

// Config customizes an Orchestrator.
type Config struct {
	Logger *zap.Logger
	Now    func() time.Time
}

// Orchestrator runs complete analyses: input checks, concurrent reads, extraction and comparison.
type Orchestrator struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewOrchestrator constructs an Orchestrator, defaulting to a no-op logger.
func NewOrchestrator(configuration Config) *Orchestrator {
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := configuration.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{logger: logger, now: now}
}

type roleSource struct {
	role   unfollow.Role
	source DocumentSource
	text   *string
}

// Run performs one analysis. Missing sources fail before anything is read. Both sources are read
// concurrently; when ctx is done by the time the reads finish, the outcome is discarded and the
// context error returned.
func (orchestrator *Orchestrator) Run(ctx context.Context, request Request) (unfollow.AnalysisResult, error) {
	startedAt := orchestrator.now()
	defer func() {
		observability.AnalysisDuration.Observe(orchestrator.now().Sub(startedAt).Seconds())
	}()

	var missingRoles []unfollow.Role
	if request.Followers == nil {
		missingRoles = append(missingRoles, unfollow.RoleFollowers)
	}
	if request.Following == nil {
		missingRoles = append(missingRoles, unfollow.RoleFollowing)
	}
	if len(missingRoles) > 0 {
		return unfollow.AnalysisResult{}, orchestrator.fail(newAnalysisError(KindMissingInput, nil, missingRoles...))
	}

	orchestrator.logger.Info(logMessageAnalysisStarted)

	var followersText, followingText string
	sources := []roleSource{
		{role: unfollow.RoleFollowers, source: request.Followers, text: &followersText},
		{role: unfollow.RoleFollowing, source: request.Following, text: &followingText},
	}

	group, groupContext := errgroup.WithContext(ctx)
	for _, entry := range sources {
		entry := entry
		group.Go(func() error {
			text, readErr := entry.source.ReadText(groupContext)
			if readErr != nil {
				return newAnalysisError(KindReadFailure, readErr, entry.role)
			}
			*entry.text = text
			orchestrator.logger.Debug(logMessageDocumentRead,
				zap.String(logFieldRole, string(entry.role)),
				zap.String(logFieldDocument, entry.source.Name()),
				zap.Int(logFieldBytes, len(text)),
			)
			return nil
		})
	}
	readErr := group.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		observability.AnalysesTotal.WithLabelValues(observability.OutcomeCanceled).Inc()
		orchestrator.logger.Info(logMessageAnalysisDiscarded, zap.Error(ctxErr))
		return unfollow.AnalysisResult{}, ctxErr
	}
	if readErr != nil {
		return unfollow.AnalysisResult{}, orchestrator.fail(readErr)
	}

	result, err := Analyze(followersText, followingText)
	if err != nil {
		return unfollow.AnalysisResult{}, orchestrator.fail(err)
	}

	observability.AnalysesTotal.WithLabelValues(observability.OutcomeSuccess).Inc()
	observability.ExtractedHandles.WithLabelValues(string(unfollow.RoleFollowers)).Observe(float64(result.FollowersCount))
	observability.ExtractedHandles.WithLabelValues(string(unfollow.RoleFollowing)).Observe(float64(result.FollowingCount))
	observability.UnfollowersFound.Observe(float64(result.UnfollowersCount))
	orchestrator.logger.Info(logMessageAnalysisCompleted,
		zap.Int(logFieldFollowersCount, result.FollowersCount),
		zap.Int(logFieldFollowingCount, result.FollowingCount),
		zap.Int(logFieldUnfollowersCount, result.UnfollowersCount),
		zap.Duration(logFieldDuration, orchestrator.now().Sub(startedAt)),
	)
	return result, nil
}

func (orchestrator *Orchestrator) fail(err error) error {
	outcome := observability.OutcomeReadFailure
	var analysisError *AnalysisError
	if errors.As(err, &analysisError) {
		switch analysisError.Kind {
		case KindMissingInput:
			outcome = observability.OutcomeMissingInput
		case KindNoHandlesExtracted:
			outcome = observability.OutcomeNoHandles
		}
		orchestrator.logger.Warn(logMessageAnalysisFailed, zap.String(logFieldErrorKind, string(analysisError.Kind)), zap.Error(err))
	} else {
		orchestrator.logger.Warn(logMessageAnalysisFailed, zap.Error(err))
	}
	observability.AnalysesTotal.WithLabelValues(outcome).Inc()
	return err
}
