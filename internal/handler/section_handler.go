package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/portfolio/internal/content"
	"github.com/portfolio/internal/service"
	"go.uber.org/zap"
)

const streamHeartbeat = 25 * time.Second

func sectionMetadataPayload(name content.SectionName, meta service.SectionMetadata) gin.H {
	payload := gin.H{
		"name":   name,
		"exists": meta.Exists,
	}
	if meta.Exists {
		payload["lastModified"] = meta.LastModified
		payload["version"] = meta.Version
		payload["revision"] = meta.Revision
	}
	return payload
}

// ListSections 返回所有分区的元数据
func (a *API) ListSections(c *gin.Context) {
	metadata, err := a.sections.GetAllSectionsMetadata(c.Request.Context())
	if err != nil {
		handleSectionError(c, err)
		return
	}

	items := make([]gin.H, 0, len(metadata))
	for _, name := range content.AllSections() {
		items = append(items, sectionMetadataPayload(name, metadata[name]))
	}
	c.JSON(http.StatusOK, gin.H{"sections": items})
}

// GetSection 返回单个分区内容
func (a *API) GetSection(c *gin.Context) {
	name, ok := parseSectionParam(c)
	if !ok {
		return
	}

	section, err := a.sections.LoadSection(c.Request.Context(), name)
	if err != nil {
		handleSectionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "section": section})
}

// UpdateSection 以整份替换的方式保存单个分区
func (a *API) UpdateSection(c *gin.Context) {
	name, ok := parseSectionParam(c)
	if !ok {
		return
	}

	raw, err := c.GetRawData()
	if err != nil {
		respondError(c, http.StatusBadRequest, "请求体读取失败")
		return
	}

	section, err := content.Decode(name, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "内容格式不正确", "detail": err.Error()})
		return
	}
	// 新增的条目在编辑入口分配 id
	content.AssignIDs(section)

	ctx := c.Request.Context()
	if err := a.sections.SaveSection(ctx, section); err != nil {
		a.logger.Warn("save section failed", zap.Stringer("section", name), zap.Error(err))
		handleSectionError(c, err)
		return
	}

	saved, err := a.sections.LoadSection(ctx, name)
	if err != nil {
		handleSectionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "section": saved})
}

// DeleteSection 删除分区文档，前台回落到默认内容
func (a *API) DeleteSection(c *gin.Context) {
	name, ok := parseSectionParam(c)
	if !ok {
		return
	}

	if err := a.sections.DeleteSection(c.Request.Context(), name); err != nil {
		handleSectionError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetContent 返回当前已保存的全部分区
func (a *API) GetContent(c *gin.Context) {
	site, err := a.sections.LoadAllSections(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrContentNotFound) && !errors.Is(err, service.ErrStoreUnavailable) {
			c.JSON(http.StatusOK, gin.H{"content": gin.H{}, "sections": 0})
			return
		}
		handleSectionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": site, "sections": site.Len()})
}

// SaveContent 一次保存多个分区，单个分区失败不影响其他分区
func (a *API) SaveContent(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		respondError(c, http.StatusBadRequest, "请求体读取失败")
		return
	}

	site, err := content.DecodeSiteContent(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "内容格式不正确", "detail": err.Error()})
		return
	}
	if site.Len() == 0 {
		respondError(c, http.StatusBadRequest, "没有需要保存的分区")
		return
	}
	for _, section := range site.Sections() {
		content.AssignIDs(section)
	}

	if err := a.sections.SaveAllSections(c.Request.Context(), site); err != nil {
		failures := sectionFailures(err)
		a.logger.Warn("save content partially failed", zap.Int("failed", len(failures)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":    "部分分区保存失败",
			"saved":    site.Len() - len(failures),
			"failures": failures,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": site.Len()})
}

// StreamContent 通过 SSE 推送分区内容变化
// 每个连接持有独立的仓库实例，断开时释放全部订阅。
func (a *API) StreamContent(c *gin.Context) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	repo := service.NewSectionRepository(a.store, a.logger)
	defer repo.UnsubscribeFromAllSections()

	// 只保留最新的一份聚合，慢连接不会阻塞存储的推送
	updates := make(chan *content.SiteContent, 1)
	err := repo.SubscribeToAllSections(ctx, func(site *content.SiteContent) {
		if site == nil {
			site = &content.SiteContent{}
		}
		for {
			select {
			case updates <- site:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	if err != nil {
		handleSectionError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-a.streamsDone:
			return false
		case site := <-updates:
			c.SSEvent("content", gin.H{"content": site, "sections": site.Len()})
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
}
