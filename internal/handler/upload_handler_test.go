package handler

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func multipartImage(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 50 {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestUploadImageDownscalesLargeImages(t *testing.T) {
	env := newTestEnv(t, nil)

	body, contentType := multipartImage(t, "avatar.png", encodePNG(t, 3200, 1600))
	req := httptest.NewRequest(http.MethodPost, "/admin/api/uploads", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody(t, rec)
	url := resp["url"].(string)
	if !strings.HasPrefix(url, "/static/uploads/") || !strings.HasSuffix(url, ".png") {
		t.Fatalf("unexpected url %q", url)
	}

	f, err := os.Open(filepath.Join(env.api.uploadDir, resp["filename"].(string)))
	if err != nil {
		t.Fatalf("open saved file: %v", err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode saved file: %v", err)
	}
	if cfg.Width != maxImageEdge || cfg.Height != maxImageEdge/2 {
		t.Fatalf("expected %dx%d, got %dx%d", maxImageEdge, maxImageEdge/2, cfg.Width, cfg.Height)
	}
}

func TestUploadImageRejectsNonImages(t *testing.T) {
	env := newTestEnv(t, nil)

	body, contentType := multipartImage(t, "notes.txt", []byte("just text"))
	req := httptest.NewRequest(http.MethodPost, "/admin/api/uploads", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = env.do(http.MethodPost, "/admin/api/uploads", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without file, got %d", rec.Code)
	}
}

func TestDownscaleKeepsSmallImages(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 40))
	if got := downscale(img, maxImageEdge); got != image.Image(img) {
		t.Fatal("small images should be returned unchanged")
	}

	tall := downscale(image.NewRGBA(image.Rect(0, 0, 10, 4000)), 1000)
	if b := tall.Bounds(); b.Dx() != 2 || b.Dy() != 1000 {
		t.Fatalf("unexpected bounds %v", b)
	}
}
