package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr       string
	Port             string
	DatabasePath     string
	SessionSecret    string
	GinMode          string
	UploadDir        string
	UploadURLPath    string
	AdminUsername    string
	AdminPassword    string
	SiteBaseURL      string
	ContactAccessKey string
	ContactEndpoint  string
	ContactFromName  string
	StoreWatch       bool
	LogLevel         string
}

var defaults = map[string]any{
	"PORT":              "8080",
	"DATABASE_PATH":     "data/portfolio.db",
	"SESSION_SECRET":    "portfolio-dev-secret",
	"GIN_MODE":          "release",
	"UPLOAD_DIR":        "web/static/uploads",
	"UPLOAD_URL_PATH":   "/static/uploads",
	"SITE_BASE_URL":     "http://localhost:8080",
	"CONTACT_ENDPOINT":  "https://api.web3forms.com/submit",
	"CONTACT_FROM_NAME": "Portfolio Contact Form",
	"STORE_WATCH":       false,
	"LOG_LEVEL":         "info",
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
// configFile 非空时先读取该 YAML 文件，环境变量优先级更高。
func Load(configFile string) (AppConfig, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for _, key := range []string{"LISTEN_ADDR", "ADMIN_USERNAME", "ADMIN_PASSWORD", "CONTACT_ACCESS_KEY"} {
		v.SetDefault(key, "")
	}
	v.AutomaticEnv()

	if path := strings.TrimSpace(configFile); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return AppConfig{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	get := func(key string) string {
		value := strings.TrimSpace(v.GetString(key))
		if value == "" {
			if fallback, ok := defaults[key].(string); ok {
				return fallback
			}
		}
		return value
	}

	port := get("PORT")
	listenAddr := get("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	return AppConfig{
		ListenAddr:       listenAddr,
		Port:             port,
		DatabasePath:     get("DATABASE_PATH"),
		SessionSecret:    get("SESSION_SECRET"),
		GinMode:          get("GIN_MODE"),
		UploadDir:        get("UPLOAD_DIR"),
		UploadURLPath:    get("UPLOAD_URL_PATH"),
		AdminUsername:    get("ADMIN_USERNAME"),
		AdminPassword:    get("ADMIN_PASSWORD"),
		SiteBaseURL:      get("SITE_BASE_URL"),
		ContactAccessKey: get("CONTACT_ACCESS_KEY"),
		ContactEndpoint:  get("CONTACT_ENDPOINT"),
		ContactFromName:  get("CONTACT_FROM_NAME"),
		StoreWatch:       v.GetBool("STORE_WATCH"),
		LogLevel:         get("LOG_LEVEL"),
	}, nil
}

// ContactConfigured 表示联系表单是否可用
func (c AppConfig) ContactConfigured() bool {
	return strings.TrimSpace(c.ContactAccessKey) != ""
}

// Development 表示是否以调试模式运行
func (c AppConfig) Development() bool {
	return c.GinMode == "debug"
}
