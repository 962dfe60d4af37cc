package handler

import (
	"context"
	"strings"
	"sync"

	"github.com/portfolio/internal/docstore"
	"github.com/portfolio/internal/logging"
	"github.com/portfolio/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db        *gorm.DB
	store     docstore.Store
	sections  *service.SectionRepository
	state     *service.ContentState
	contact   *service.ContactService
	limiter   *LoginLimiter
	logger    *zap.Logger
	uploadDir string
	uploadURL string

	// streamsDone 关闭后所有 SSE 连接结束
	streamsDone chan struct{}
	streamsOnce sync.Once
}

// Options 描述构造 API 时的可选依赖
type Options struct {
	UploadDir string
	UploadURL string
	Relay     *service.ContactRelay
	Logger    *zap.Logger
}

// NewAPI constructs a handler set with shared services.
// 前台内容状态使用独立的仓库实例，避免与后台的订阅互相替换。
func NewAPI(gdb *gorm.DB, store docstore.Store, opts Options) *API {
	logger := logging.OrNop(opts.Logger)
	relay := opts.Relay
	if relay == nil {
		relay = service.NewContactRelay("", "", "", logger)
	}

	uploadURL := strings.TrimRight(strings.TrimSpace(opts.UploadURL), "/")
	if uploadURL == "" {
		uploadURL = "/static/uploads"
	}
	uploadDir := strings.TrimSpace(opts.UploadDir)
	if uploadDir == "" {
		uploadDir = "web/static/uploads"
	}

	return &API{
		db:        gdb,
		store:     store,
		sections:  service.NewSectionRepository(store, logger),
		state:     service.NewContentState(service.NewSectionRepository(store, logger), logger),
		contact:   service.NewContactService(gdb, relay, logger),
		limiter:   NewLoginLimiter(5, defaultLoginWindow),
		logger:    logger.Named("http"),
		uploadDir: uploadDir,
		uploadURL: uploadURL,

		streamsDone: make(chan struct{}),
	}
}

// Start 开始同步前台内容
func (a *API) Start(ctx context.Context) error {
	return a.state.Start(ctx)
}

// CloseStreams 结束所有进行中的 SSE 连接，可重复调用。
// http.Server.Shutdown 不会取消长连接的请求上下文，需要在关停时调用。
func (a *API) CloseStreams() {
	a.streamsOnce.Do(func() { close(a.streamsDone) })
}

// Close 结束 SSE 连接并释放前台内容订阅
func (a *API) Close() {
	a.CloseStreams()
	a.state.Stop()
	a.sections.UnsubscribeFromAllSections()
}

// Sections exposes the admin repository.
func (a *API) Sections() *service.SectionRepository {
	return a.sections
}

// State exposes the public content state.
func (a *API) State() *service.ContentState {
	return a.state
}
