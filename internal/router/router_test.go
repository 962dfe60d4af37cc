package router

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/portfolio/internal/content"
	"github.com/portfolio/internal/db"
	"github.com/portfolio/internal/docstore"
	"github.com/portfolio/internal/handler"
	"gorm.io/gorm"
)

func setupRouter(t *testing.T, uploadDir string) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := db.Open(fmt.Sprintf("file:router-%d?mode=memory&cache=shared", time.Now().UnixNano()))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(gdb) })

	store := docstore.NewGormStore(gdb, nil)
	t.Cleanup(func() { _ = store.Close() })

	api := handler.NewAPI(gdb, store, handler.Options{UploadDir: uploadDir})
	if err := api.Start(context.Background()); err != nil {
		t.Fatalf("start api: %v", err)
	}
	t.Cleanup(api.Close)

	r, err := SetupRouter(api, Options{
		SessionSecret: "test-secret",
		UploadDir:     uploadDir,
		UploadURLPath: "/static/uploads",
	})
	if err != nil {
		t.Fatalf("setup router: %v", err)
	}
	return r, gdb
}

func TestSetupRouterServesUploadsAlias(t *testing.T) {
	uploadDir := t.TempDir()
	fileName := "example.txt"
	fileContent := []byte("hello uploads")
	if err := os.WriteFile(filepath.Join(uploadDir, fileName), fileContent, 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	r, _ := setupRouter(t, uploadDir)

	for _, path := range []string{"/uploads/" + fileName, "/static/uploads/" + fileName} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected status %d, got %d", path, http.StatusOK, rr.Code)
		}
		if rr.Body.String() != string(fileContent) {
			t.Fatalf("%s: unexpected body, got %q", path, rr.Body.String())
		}
	}
}

func TestHomeRendersDefaults(t *testing.T) {
	r, _ := setupRouter(t, t.TempDir())

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, template.HTMLEscapeString(content.Defaults().Hero.Title)) {
		t.Fatalf("expected default hero title in page")
	}
}

func TestAdminRequiresLogin(t *testing.T) {
	r, _ := setupRouter(t, t.TempDir())

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin", nil))
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/admin/login" {
		t.Fatalf("expected redirect to login, got %d %q", rr.Code, rr.Header().Get("Location"))
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/api/sections", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for api, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/login", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected login page, got %d", rr.Code)
	}
}

func TestLoginThenDashboard(t *testing.T) {
	r, gdb := setupRouter(t, t.TempDir())
	if err := db.CreateUser(gdb, "admin", "secret"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	form := url.Values{"username": {"admin"}, "password": {"secret"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusFound {
		t.Fatalf("expected redirect after login, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	for _, c := range rr.Result().Cookies() {
		req.AddCookie(c)
	}
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected dashboard, got %d", rr.Code)
	}
	for _, name := range content.AllSections() {
		if !strings.Contains(rr.Body.String(), string(name)) {
			t.Fatalf("dashboard missing section %s", name)
		}
	}
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		input    time.Time
		expected string
	}{
		{name: "zero", input: time.Time{}, expected: ""},
		{name: "seconds", input: now.Add(-30 * time.Second), expected: "刚刚"},
		{name: "minutes", input: now.Add(-5 * time.Minute), expected: "5分钟前"},
		{name: "hours", input: now.Add(-2 * time.Hour), expected: "2小时前"},
		{name: "days", input: now.Add(-72 * time.Hour), expected: "3天前"},
		{name: "months", input: now.Add(-60 * 24 * time.Hour), expected: "2个月前"},
		{name: "years", input: now.Add(-3 * 365 * 24 * time.Hour), expected: "3年前"},
		{name: "future", input: now.Add(2 * time.Minute), expected: "刚刚"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatRelativeTime(now, tt.input)
			if got != tt.expected {
				t.Fatalf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
