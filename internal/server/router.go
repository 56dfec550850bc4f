package server

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/f-sync/igsync/internal/analyzer"
	"github.com/f-sync/igsync/internal/observability"
	"github.com/f-sync/igsync/internal/unfollow"
)

const (
	// DefaultMaxUploadBytes caps one analyze request body when RouterConfig leaves it unset.
	DefaultMaxUploadBytes int64 = 64 << 20
)

const (
	pageRoutePath                  = "/"
	analyzeRoutePath               = "/api/analyze"
	sessionRoutePath               = "/api/session"
	healthRoutePath                = "/healthz"
	metricsRoutePath               = "/metrics"
	staticRoutePath                = "/static"
	htmlContentType                = "text/html; charset=utf-8"
	sessionCookieName              = "igsync_session"
	sessionCookiePath              = "/"
	formFieldFollowers             = "followers"
	formFieldFollowing             = "following"
	formFieldArchive               = "archive"
	multipartMemoryBytes           = 8 << 20
	errorResponseKey               = "error"
	healthStatusKey                = "status"
	healthStatusOK                 = "ok"
	errorMessageRenderFailure      = "page rendering failed"
	errorMessageUploadTooLarge     = "The uploaded files are too large"
	errorMessageRateLimited        = "Too many requests. Please wait a moment and try again"
	logMessageRenderFailure        = "page render failure"
	logMessageStaticAssetsFailure  = "static assets unavailable"
	logMessageAnalysisRejected     = "analysis rejected"
	logMessageAnalysisAbandoned    = "analysis abandoned by client"
	logMessageUploadTooLarge       = "upload exceeds size limit"
	logMessageUnreadableUpload     = "upload body could not be parsed"
	logMessageRateLimited          = "analyze request rate limited"
	logMessageSessionReset         = "session reset"
	logFieldClient                 = "client"
	logFieldMaxUploadBytes         = "max_upload_bytes"
	ginModeRelease                 = "release"
	sessionCookieMaxAgeSeconds     = int(DefaultSessionIdleTimeout / time.Second)
	uploadSummaryArchiveRoleSuffix = " (archive)"
)

// PageRenderer renders the analyzer page for a session snapshot.
type PageRenderer interface {
	RenderPage(pageData unfollow.PageData) (string, error)
}

// UnfollowPageRenderer implements PageRenderer by delegating to the unfollow package.
type UnfollowPageRenderer struct{}

// RenderPage uses unfollow.RenderPage to produce the HTML output.
func (UnfollowPageRenderer) RenderPage(pageData unfollow.PageData) (string, error) {
	return unfollow.RenderPage(pageData)
}

// RouterConfig configures the HTTP routing for analyzer requests.
type RouterConfig struct {
	Orchestrator       *analyzer.Orchestrator
	Renderer           PageRenderer
	Logger             *zap.Logger
	MaxUploadBytes     int64
	RateLimit          float64
	RateBurst          int
	SessionIdleTimeout time.Duration
	Now                func() time.Time
}

// NewRouter constructs a Gin engine configured with the page, analysis, session, health and
// metrics handlers.
func NewRouter(configuration RouterConfig) (*gin.Engine, error) {
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	orchestrator := configuration.Orchestrator
	if orchestrator == nil {
		orchestrator = analyzer.NewOrchestrator(analyzer.Config{Logger: logger})
	}
	renderer := configuration.Renderer
	if renderer == nil {
		renderer = UnfollowPageRenderer{}
	}
	maxUploadBytes := configuration.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}

	staticAssets, err := unfollow.StaticAssets()
	if err != nil {
		logger.Error(logMessageStaticAssetsFailure, zap.Error(err))
		return nil, err
	}

	gin.SetMode(ginModeRelease)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.MaxMultipartMemory = multipartMemoryBytes

	sessionIdleTimeout := configuration.SessionIdleTimeout
	if sessionIdleTimeout <= 0 {
		sessionIdleTimeout = DefaultSessionIdleTimeout
	}

	handler := &routerHandler{
		orchestrator:   orchestrator,
		renderer:       renderer,
		logger:         logger,
		sessions:       newSessionStore(sessionIdleTimeout, configuration.Now),
		limiter:        newClientLimiter(configuration.RateLimit, configuration.RateBurst, sessionIdleTimeout, configuration.Now),
		maxUploadBytes: maxUploadBytes,
	}

	engine.GET(pageRoutePath, handler.servePage)
	engine.POST(analyzeRoutePath, handler.rateLimit, handler.analyzeUploads)
	engine.GET(sessionRoutePath, handler.sessionStatus)
	engine.DELETE(sessionRoutePath, handler.resetSession)
	engine.GET(healthRoutePath, handler.healthStatus)
	engine.GET(metricsRoutePath, gin.WrapH(promhttp.Handler()))
	engine.StaticFS(staticRoutePath, http.FS(staticAssets))

	return engine, nil
}

type routerHandler struct {
	orchestrator   *analyzer.Orchestrator
	renderer       PageRenderer
	logger         *zap.Logger
	sessions       *sessionStore
	limiter        *clientLimiter
	maxUploadBytes int64
}

// sessionResponse is the JSON view of a session.
type sessionResponse struct {
	State   analyzer.State           `json:"state"`
	Uploads []unfollow.UploadSummary `json:"uploads,omitempty"`
	Result  *unfollow.AnalysisResult `json:"result,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

func (handler *routerHandler) resolveSession(ginContext *gin.Context) *analyzer.Session {
	cookieValue, _ := ginContext.Cookie(sessionCookieName)
	identifier, session := handler.sessions.Resolve(cookieValue)
	if identifier != cookieValue {
		ginContext.SetSameSite(http.SameSiteStrictMode)
		ginContext.SetCookie(sessionCookieName, identifier, sessionCookieMaxAgeSeconds, sessionCookiePath, "", false, true)
	}
	return session
}

func (handler *routerHandler) servePage(ginContext *gin.Context) {
	snapshot := handler.resolveSession(ginContext).Snapshot()
	pageData := unfollow.PageData{
		Result:    snapshot.Result,
		Uploads:   snapshot.Uploads,
		Analyzing: snapshot.State == analyzer.StateAnalyzing,
	}
	if snapshot.Err != nil {
		pageData.Errors = []string{analyzer.UserMessage(snapshot.Err)}
	}
	pageHTML, err := handler.renderer.RenderPage(pageData)
	if err != nil {
		handler.logger.Error(logMessageRenderFailure, zap.Error(err))
		ginContext.String(http.StatusInternalServerError, errorMessageRenderFailure)
		return
	}
	ginContext.Data(http.StatusOK, htmlContentType, []byte(pageHTML))
}

func (handler *routerHandler) rateLimit(ginContext *gin.Context) {
	clientAddress := ginContext.ClientIP()
	if handler.limiter.Allow(clientAddress) {
		ginContext.Next()
		return
	}
	observability.RateLimitedRequestsTotal.Inc()
	handler.logger.Warn(logMessageRateLimited, zap.String(logFieldClient, clientAddress))
	ginContext.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{errorResponseKey: errorMessageRateLimited})
}

func (handler *routerHandler) analyzeUploads(ginContext *gin.Context) {
	session := handler.resolveSession(ginContext)

	if ginContext.Request.ContentLength > handler.maxUploadBytes {
		handler.rejectOversizedUpload(ginContext)
		return
	}
	ginContext.Request.Body = http.MaxBytesReader(ginContext.Writer, ginContext.Request.Body, handler.maxUploadBytes)
	if err := ginContext.Request.ParseMultipartForm(multipartMemoryBytes); err != nil {
		var maxBytesError *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesError):
			handler.rejectOversizedUpload(ginContext)
			return
		case !errors.Is(err, http.ErrNotMultipart):
			handler.logger.Info(logMessageUnreadableUpload, zap.Error(err))
			readFailure := analyzer.NewReadFailure(err, unfollow.RoleFollowers, unfollow.RoleFollowing)
			if recordErr := session.RecordFailure(nil, readFailure); recordErr != nil {
				handler.respondAnalysisError(ginContext, recordErr)
				return
			}
			handler.respondAnalysisError(ginContext, readFailure)
			return
		}
	}
	form := ginContext.Request.MultipartForm
	if form != nil {
		defer func() {
			_ = form.RemoveAll()
		}()
	}

	request, uploads := handler.buildRequest(form)
	result, err := session.RunAnalysis(ginContext.Request.Context(), handler.orchestrator, request, uploads)
	if err != nil {
		handler.respondAnalysisError(ginContext, err)
		return
	}
	ginContext.JSON(http.StatusOK, result)
}

func (handler *routerHandler) rejectOversizedUpload(ginContext *gin.Context) {
	handler.logger.Warn(logMessageUploadTooLarge, zap.Int64(logFieldMaxUploadBytes, handler.maxUploadBytes))
	ginContext.JSON(http.StatusRequestEntityTooLarge, gin.H{errorResponseKey: errorMessageUploadTooLarge})
}

func (handler *routerHandler) respondAnalysisError(ginContext *gin.Context, err error) {
	var analysisError *analyzer.AnalysisError
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		handler.logger.Info(logMessageAnalysisAbandoned)
		ginContext.Abort()
	case errors.Is(err, analyzer.ErrAnalysisInProgress):
		ginContext.JSON(http.StatusConflict, gin.H{errorResponseKey: analyzer.UserMessage(err)})
	case errors.As(err, &analysisError):
		handler.logger.Info(logMessageAnalysisRejected, zap.Error(err))
		ginContext.JSON(http.StatusBadRequest, gin.H{errorResponseKey: analyzer.UserMessage(err)})
	default:
		handler.logger.Error(logMessageAnalysisRejected, zap.Error(err))
		ginContext.JSON(http.StatusInternalServerError, gin.H{errorResponseKey: analyzer.UserMessage(err)})
	}
}

// buildRequest maps the multipart form onto analyzer sources. An archive upload supplies both
// documents; otherwise each role comes from its own file field.
func (handler *routerHandler) buildRequest(form *multipart.Form) (analyzer.Request, []unfollow.UploadSummary) {
	if form == nil {
		return analyzer.Request{}, nil
	}
	if archiveHeader := firstFileHeader(form, formFieldArchive); archiveHeader != nil {
		followersSource, followingSource := analyzer.NewArchiveSources(archiveHeader.Filename, func() (unfollow.ExportDocuments, error) {
			archiveFile, err := archiveHeader.Open()
			if err != nil {
				return unfollow.ExportDocuments{}, err
			}
			defer archiveFile.Close()
			return unfollow.ReadInstagramArchive(archiveFile, archiveHeader.Size)
		})
		uploads := []unfollow.UploadSummary{
			{Role: unfollow.RoleFollowers, FileName: archiveHeader.Filename + uploadSummaryArchiveRoleSuffix},
			{Role: unfollow.RoleFollowing, FileName: archiveHeader.Filename + uploadSummaryArchiveRoleSuffix},
		}
		return analyzer.Request{Followers: followersSource, Following: followingSource}, uploads
	}

	var request analyzer.Request
	var uploads []unfollow.UploadSummary
	if followersHeader := firstFileHeader(form, formFieldFollowers); followersHeader != nil {
		request.Followers = analyzer.UploadSource{Header: followersHeader, MaxReadBytes: handler.maxUploadBytes}
		uploads = append(uploads, unfollow.UploadSummary{Role: unfollow.RoleFollowers, FileName: followersHeader.Filename})
	}
	if followingHeader := firstFileHeader(form, formFieldFollowing); followingHeader != nil {
		request.Following = analyzer.UploadSource{Header: followingHeader, MaxReadBytes: handler.maxUploadBytes}
		uploads = append(uploads, unfollow.UploadSummary{Role: unfollow.RoleFollowing, FileName: followingHeader.Filename})
	}
	return request, uploads
}

func firstFileHeader(form *multipart.Form, field string) *multipart.FileHeader {
	headers := form.File[field]
	if len(headers) == 0 {
		return nil
	}
	return headers[0]
}

func (handler *routerHandler) sessionStatus(ginContext *gin.Context) {
	snapshot := handler.resolveSession(ginContext).Snapshot()
	ginContext.JSON(http.StatusOK, newSessionResponse(snapshot))
}

func (handler *routerHandler) resetSession(ginContext *gin.Context) {
	session := handler.resolveSession(ginContext)
	session.Reset()
	handler.logger.Info(logMessageSessionReset)
	ginContext.JSON(http.StatusOK, newSessionResponse(session.Snapshot()))
}

func (handler *routerHandler) healthStatus(ginContext *gin.Context) {
	ginContext.JSON(http.StatusOK, map[string]string{healthStatusKey: healthStatusOK})
}

func newSessionResponse(snapshot analyzer.SessionSnapshot) sessionResponse {
	response := sessionResponse{
		State:   snapshot.State,
		Uploads: snapshot.Uploads,
		Result:  snapshot.Result,
	}
	if snapshot.Err != nil {
		response.Error = analyzer.UserMessage(snapshot.Err)
	}
	return response
}
