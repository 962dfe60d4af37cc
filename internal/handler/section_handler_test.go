package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/portfolio/internal/content"
	"github.com/portfolio/internal/service"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestUpdateAndGetSection(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPut, "/admin/api/sections/projects",
		`{"title":"Work","items":[{"title":"<b>Portfolio</b>","technologies":["Go"]}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	section := body["section"].(map[string]any)
	items := section["items"].([]any)
	item := items[0].(map[string]any)
	if item["title"] != "<b>Portfolio</b>" {
		t.Fatalf("expected title stored as given, got %v", item["title"])
	}
	id, _ := item["id"].(string)
	if id == "" {
		t.Fatal("expected generated item id")
	}
	if _, ok := section["lastModified"]; ok {
		t.Fatal("metadata should not leak into the section payload")
	}

	rec = env.do(http.MethodGet, "/admin/api/sections/projects", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if decodeBody(t, rec)["name"] != "projects" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}

	// 再次保存带 id 的条目时 id 保持不变
	rec = env.do(http.MethodPut, "/admin/api/sections/projects",
		`{"title":"Work","items":[{"id":"`+id+`","title":"Portfolio v2"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	item = decodeBody(t, rec)["section"].(map[string]any)["items"].([]any)[0].(map[string]any)
	if item["id"] != id {
		t.Fatalf("expected id %q kept, got %v", id, item["id"])
	}
}

func TestSectionErrorsMapToStatus(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{name: "unknown section", method: http.MethodGet, target: "/admin/api/sections/blog", want: http.StatusNotFound},
		{name: "missing document", method: http.MethodGet, target: "/admin/api/sections/hero", want: http.StatusNotFound},
		{name: "unknown field", method: http.MethodPut, target: "/admin/api/sections/hero", body: `{"title":"x","colour":"red"}`, want: http.StatusBadRequest},
		{name: "failed validation", method: http.MethodPut, target: "/admin/api/sections/hero", body: `{"subtitle":"no title"}`, want: http.StatusBadRequest},
		{name: "not json", method: http.MethodPut, target: "/admin/api/sections/hero", body: `title=x`, want: http.StatusBadRequest},
		{name: "delete unknown", method: http.MethodDelete, target: "/admin/api/sections/blog", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.method, tt.target, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestDeleteSectionFallsBackToDefaults(t *testing.T) {
	env := newTestEnv(t, nil)

	if rec := env.do(http.MethodPut, "/admin/api/sections/hero", `{"title":"Custom"}`); rec.Code != http.StatusOK {
		t.Fatalf("seed: %d", rec.Code)
	}
	waitFor(t, func() bool { return env.api.State().Site().Hero.Title == "Custom" })

	if rec := env.do(http.MethodDelete, "/admin/api/sections/hero", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	waitFor(t, func() bool { return env.api.State().Site().Hero.Title == content.Defaults().Hero.Title })
}

func TestListSections(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(http.MethodPut, "/admin/api/sections/about", `{"title":"About","content":"hi"}`)

	rec := env.do(http.MethodGet, "/admin/api/sections", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	sections := decodeBody(t, rec)["sections"].([]any)
	if len(sections) != len(content.AllSections()) {
		t.Fatalf("expected every section listed, got %d", len(sections))
	}
	for _, raw := range sections {
		entry := raw.(map[string]any)
		exists := entry["exists"].(bool)
		if (entry["name"] == "about") != exists {
			t.Fatalf("unexpected existence for %v", entry)
		}
		if exists && entry["version"] != service.SectionSchemaVersion {
			t.Fatalf("expected version metadata, got %v", entry)
		}
	}
}

func TestSaveContent(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/admin/api/content", "")
	if rec.Code != http.StatusOK || decodeBody(t, rec)["sections"].(float64) != 0 {
		t.Fatalf("expected empty content, got %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodPut, "/admin/api/content", `{"hero":{"title":"Hi"},"about":{"title":"About","content":"x"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if decodeBody(t, rec)["saved"].(float64) != 2 {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}

	rec = env.do(http.MethodGet, "/admin/api/content", "")
	body := decodeBody(t, rec)
	if body["sections"].(float64) != 2 {
		t.Fatalf("expected two sections, got %s", rec.Body.String())
	}

	rec = env.do(http.MethodPut, "/admin/api/content", `{"certifications":{"title":"Certs","items":[{"name":"CKA","issuer":"CNCF"}]}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	loaded, err := env.api.Sections().LoadSection(context.Background(), content.SectionCertifications)
	if err != nil {
		t.Fatalf("load certifications: %v", err)
	}
	if loaded.(*content.Certifications).Items[0].ID == "" {
		t.Fatal("expected ids assigned when saving all content")
	}

	if rec := env.do(http.MethodPut, "/admin/api/content", `{"blog":{}}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown section, got %d", rec.Code)
	}
	if rec := env.do(http.MethodPut, "/admin/api/content", `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty content, got %d", rec.Code)
	}
}

func TestStreamContentPushesChanges(t *testing.T) {
	env := newTestEnv(t, nil)
	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/admin/api/content/stream", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("unexpected content type %q", ct)
	}

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	// 首个事件来自初始快照
	waitForLine(t, lines, "event:content")

	go func() {
		env.do(http.MethodPut, "/admin/api/sections/hero", `{"title":"Streamed"}`)
	}()
	waitForLine(t, lines, "Streamed")
	cancel()
}

func TestShutdownEndsOpenStreams(t *testing.T) {
	env := newTestEnv(t, nil)
	srv := httptest.NewUnstartedServer(env.router)
	srv.Config.RegisterOnShutdown(env.api.CloseStreams)
	srv.Start()
	t.Cleanup(srv.Close)

	resp, err := srv.Client().Get(srv.URL + "/admin/api/content/stream")
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	waitForLine(t, lines, "event:content")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	start := time.Now()
	if err := srv.Config.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("shutdown waited %s for the stream", elapsed)
	}

	timeout := time.After(time.Second)
	for {
		select {
		case _, ok := <-lines:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("stream still open after shutdown")
		}
	}
}

func waitForLine(t *testing.T, lines <-chan string, substr string) {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatalf("stream closed before %q", substr)
			}
			if strings.Contains(line, substr) {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q", substr)
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
