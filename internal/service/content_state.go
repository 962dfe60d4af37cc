package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/portfolio/internal/content"
	"github.com/portfolio/internal/logging"
	"go.uber.org/zap"
)

// ContentState 持有前台使用的内容树，通过订阅全部分区保持最新。
type ContentState struct {
	repo   *SectionRepository
	logger *zap.Logger

	mu      sync.RWMutex
	saved   *content.SiteContent
	updated time.Time
}

// NewContentState 构造 ContentState，repo 应为其独占的仓库实例
func NewContentState(repo *SectionRepository, logger *zap.Logger) *ContentState {
	return &ContentState{
		repo:   repo,
		logger: logging.OrNop(logger).Named("content-state"),
	}
}

// Start 先同步加载一次内容，再订阅后续变更
func (s *ContentState) Start(ctx context.Context) error {
	aggregate, err := s.repo.LoadAllSections(ctx)
	switch {
	case err == nil:
		s.apply(aggregate)
	case errors.Is(err, ErrContentNotFound) && !errors.Is(err, ErrStoreUnavailable):
		s.logger.Info("no saved content yet, serving defaults")
	default:
		s.logger.Warn("initial content load failed", zap.Error(err))
	}

	// 等所有分区的初始快照到齐再替换，避免短暂退回到部分内容
	return s.repo.subscribeAll(ctx, true, s.apply)
}

// Stop 释放订阅
func (s *ContentState) Stop() {
	s.repo.UnsubscribeFromAllSections()
}

func (s *ContentState) apply(aggregate *content.SiteContent) {
	s.mu.Lock()
	s.saved = aggregate
	s.updated = time.Now()
	s.mu.Unlock()
}

// Saved 返回已保存分区的副本，没有任何内容时返回 nil
func (s *ContentState) Saved() *content.SiteContent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saved.Clone()
}

// Site 返回叠加默认内容后的完整内容树
func (s *ContentState) Site() *content.SiteContent {
	return s.Saved().MergeOver(content.Defaults())
}

// UpdatedAt 返回最近一次收到变更的时间
func (s *ContentState) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated
}
