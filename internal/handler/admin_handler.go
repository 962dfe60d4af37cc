package handler

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/portfolio/internal/content"
	"github.com/portfolio/internal/db"
	"github.com/portfolio/internal/view"
	"go.uber.org/zap"
)

// ShowLoginPage 渲染登录页面
func (a *API) ShowLoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{
		"title": "管理员登录",
	})
}

// Login 处理用户登录请求
func (a *API) Login(c *gin.Context) {
	ip := c.ClientIP()
	if ok, wait := a.limiter.Allow(ip); !ok {
		minutes := int(math.Ceil(wait.Minutes()))
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		c.HTML(http.StatusTooManyRequests, "login.html", gin.H{
			"title": "管理员登录",
			"error": fmt.Sprintf("尝试次数过多，请 %d 分钟后再试", minutes),
		})
		return
	}

	username := c.PostForm("username")
	password := c.PostForm("password")

	user, err := db.Authenticate(a.db, username, password)
	if err != nil {
		a.limiter.Fail(ip)
		a.logger.Info("admin login failed", zap.String("username", strings.TrimSpace(username)), zap.String("ip", ip))
		c.HTML(http.StatusUnauthorized, "login.html", gin.H{
			"title":    "管理员登录",
			"error":    "用户名或密码错误",
			"username": username,
		})
		return
	}
	a.limiter.Reset(ip)

	// 设置会话
	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Set("username", user.Username)
	if err := session.Save(); err != nil {
		c.HTML(http.StatusInternalServerError, "login.html", gin.H{
			"title": "管理员登录",
			"error": "会话保存失败",
		})
		return
	}

	c.Redirect(http.StatusFound, "/admin")
}

// Logout 处理用户登出
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()
	c.Redirect(http.StatusFound, "/admin/login")
}

// ShowDashboard 渲染后台主面板：分区元数据、留言数量与实时预览
func (a *API) ShowDashboard(c *gin.Context) {
	session := sessions.Default(c)
	username := session.Get("username")

	metadata, metaErr := a.sections.GetAllSectionsMetadata(c.Request.Context())
	if metaErr != nil {
		a.logger.Warn("load section metadata failed", zap.Error(metaErr))
	}

	rows := make([]gin.H, 0, len(content.AllSections()))
	saved := 0
	for _, name := range content.AllSections() {
		meta := metadata[name]
		if meta.Exists {
			saved++
		}
		rows = append(rows, sectionMetadataPayload(name, meta))
	}

	messageCount, err := a.contact.CountMessages()
	if err != nil {
		a.logger.Warn("count contact messages failed", zap.Error(err))
	}

	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"title":             "内容管理",
		"username":          username,
		"sections":          rows,
		"savedCount":        saved,
		"messageCount":      messageCount,
		"storeError":        err != nil && metadata == nil,
		"contactReady":      a.contact.Relay().Configured(),
		"socialIconOptions": view.SocialIconOptions(),
	})
}

// AuthRequired 是一个简单的认证中间件，API 请求返回 401，页面请求跳转登录
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get("user_id")
		if userID == nil {
			if strings.HasPrefix(c.Request.URL.Path, "/admin/api/") {
				respondError(c, http.StatusUnauthorized, "请先登录")
			} else {
				c.Redirect(http.StatusFound, "/admin/login")
			}
			c.Abort()
			return
		}
		c.Next()
	}
}
