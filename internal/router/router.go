package router

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/portfolio/internal/handler"
	"github.com/portfolio/internal/view"
	"github.com/portfolio/web"
)

const sessionName = "portfolio_session"

// Options 描述路由需要的运行参数
type Options struct {
	SessionSecret string
	UploadDir     string
	UploadURLPath string
	SecureCookie  bool
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, opts Options) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// 配置会话中间件
	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	// 加载模板并添加自定义函数
	tmpl, err := template.New("").Funcs(templateFuncs(time.Now)).ParseFS(web.Templates, "template/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)

	// 上传文件服务，/uploads 作为短别名
	uploadURL := strings.TrimRight(opts.UploadURLPath, "/")
	if uploadURL == "" {
		uploadURL = "/static/uploads"
	}
	if opts.UploadDir != "" {
		r.Static(uploadURL, opts.UploadDir)
		if uploadURL != "/uploads" {
			r.Static("/uploads", opts.UploadDir)
		}
	}

	r.GET("/ping", handler.Ping)
	r.GET("/healthz", api.HealthCheck)

	// 前台
	r.GET("/", api.ShowHome)
	public := r.Group("/api")
	{
		public.GET("/content", api.GetPublicContent)
		public.POST("/contact", api.SubmitContact)
	}

	// 后台管理路由
	admin := r.Group("/admin")
	{
		admin.GET("/login", api.ShowLoginPage)
		admin.POST("/login", api.Login)
		admin.GET("/logout", api.Logout)

		// 需要认证的后台路由
		auth := admin.Group("")
		auth.Use(handler.AuthRequired())
		{
			auth.GET("", api.ShowDashboard)
			auth.GET("/dashboard", func(c *gin.Context) {
				c.Redirect(http.StatusMovedPermanently, "/admin")
			})

			apiGroup := auth.Group("/api")
			{
				apiGroup.GET("/sections", api.ListSections)
				apiGroup.GET("/sections/:name", api.GetSection)
				apiGroup.PUT("/sections/:name", api.UpdateSection)
				apiGroup.DELETE("/sections/:name", api.DeleteSection)

				apiGroup.GET("/content", api.GetContent)
				apiGroup.PUT("/content", api.SaveContent)
				apiGroup.GET("/content/stream", api.StreamContent)

				apiGroup.GET("/messages", api.ListContactMessages)
				apiGroup.POST("/uploads", api.UploadImage)
			}
		}
	}

	return r, nil
}

func templateFuncs(now func() time.Time) template.FuncMap {
	return template.FuncMap{
		"socialIcon": func(name string) template.HTML {
			return template.HTML(view.SocialIconSVG(name))
		},
		"markdown": handler.RenderMarkdown,
		"relativeTime": func(value any) string {
			t, ok := value.(time.Time)
			if !ok {
				return ""
			}
			return formatRelativeTime(now(), t)
		},
		"add": func(a, b int) int {
			return a + b
		},
	}
}

// formatRelativeTime 将时间格式化为“x分钟前”这类相对描述
func formatRelativeTime(now, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	diff := now.Sub(t)
	if diff < time.Minute {
		return "刚刚"
	}
	switch {
	case diff < time.Hour:
		return fmt.Sprintf("%d分钟前", int(diff/time.Minute))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%d小时前", int(diff/time.Hour))
	case diff < 30*24*time.Hour:
		return fmt.Sprintf("%d天前", int(diff/(24*time.Hour)))
	case diff < 365*24*time.Hour:
		return fmt.Sprintf("%d个月前", int(diff/(30*24*time.Hour)))
	default:
		return fmt.Sprintf("%d年前", int(diff/(365*24*time.Hour)))
	}
}
