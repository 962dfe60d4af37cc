package handler

import (
	"bytes"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

// RenderMarkdown 将 Markdown 渲染为经过清洗的 HTML，供模板函数使用
func RenderMarkdown(content string) template.HTML {
	rendered, err := renderMarkdown(content)
	if err != nil {
		return template.HTML(template.HTMLEscapeString(content))
	}
	return rendered
}

func renderMarkdown(content string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	safe := sanitizer.SanitizeBytes(buf.Bytes())
	return template.HTML(safe), nil
}

// ShowHome 渲染作品集首页，未保存的分区使用默认内容
func (a *API) ShowHome(c *gin.Context) {
	site := a.state.Site()

	var about template.HTML
	if site.About != nil {
		rendered, err := renderMarkdown(site.About.Content)
		if err != nil {
			a.logger.Warn("render about markdown failed", zap.Error(err))
		}
		about = rendered
	}

	c.HTML(http.StatusOK, "home.html", gin.H{
		"title":     site.PersonalInfo.Name,
		"site":      site,
		"about":     about,
		"contactOn": a.contact.Relay().Configured(),
		"year":      time.Now().Year(),
	})
}

// GetPublicContent 返回前台当前使用的完整内容
func (a *API) GetPublicContent(c *gin.Context) {
	site := a.state.Site()
	updated := a.state.UpdatedAt()

	payload := gin.H{"content": site}
	if !updated.IsZero() {
		payload["updatedAt"] = updated.UTC()
	}
	c.JSON(http.StatusOK, payload)
}
