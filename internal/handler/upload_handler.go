package handler

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	maxUploadBytes = 10 << 20
	maxImageEdge   = 1600
)

var errUnsupportedImage = errors.New("unsupported image")

// UploadImage 处理头像、项目截图等图片上传
// 超过最大边长的图片会被等比缩小，webp 与 gif 统一转成 png 或 jpeg 保存。
func (a *API) UploadImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "未找到上传的图片")
		return
	}
	if file.Size > maxUploadBytes {
		respondError(c, http.StatusRequestEntityTooLarge, "图片不能超过 10MB")
		return
	}

	src, err := file.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "读取图片失败")
		return
	}
	defer src.Close()

	data, ext, err := processImage(src)
	if err != nil {
		respondError(c, http.StatusBadRequest, "只允许上传图片文件")
		return
	}

	if err := os.MkdirAll(a.uploadDir, 0o755); err != nil {
		a.logger.Error("create upload dir failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "创建上传目录失败")
		return
	}

	// 生成唯一文件名
	name := fmt.Sprintf("%s-%s%s", time.Now().Format("20060102"), uuid.NewString(), ext)
	if err := os.WriteFile(filepath.Join(a.uploadDir, name), data, 0o644); err != nil {
		a.logger.Error("save upload failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "保存文件失败")
		return
	}

	url := a.uploadURL + "/" + name
	c.JSON(http.StatusOK, gin.H{
		"url":      url,
		"filename": name,
	})
}

func processImage(r io.Reader) ([]byte, string, error) {
	img, format, err := image.Decode(io.LimitReader(r, maxUploadBytes))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", errUnsupportedImage, err)
	}

	img = downscale(img, maxImageEdge)

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85})
		if err != nil {
			return nil, "", err
		}
		return buf.Bytes(), ".jpg", nil
	default:
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), ".png", nil
	}
}

// downscale 按最长边等比缩小，不放大
func downscale(img image.Image, maxEdge int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxEdge && h <= maxEdge {
		return img
	}

	if w >= h {
		h = h * maxEdge / w
		w = maxEdge
	} else {
		w = w * maxEdge / h
		h = maxEdge
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
