package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/portfolio/internal/content"
	"github.com/portfolio/internal/service"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func parseSectionParam(c *gin.Context) (content.SectionName, bool) {
	name, err := content.ParseSectionName(strings.TrimSpace(c.Param("name")))
	if err != nil {
		respondError(c, http.StatusNotFound, "分区不存在")
		return "", false
	}
	return name, true
}

func parsePositiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func handleSectionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownSection):
		respondError(c, http.StatusNotFound, "分区不存在")
	case errors.Is(err, service.ErrSectionNotFound):
		respondError(c, http.StatusNotFound, "该分区尚未保存内容")
	case errors.Is(err, service.ErrSectionInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "内容格式不正确", "detail": err.Error()})
	case errors.Is(err, service.ErrStoreUnavailable):
		respondError(c, http.StatusServiceUnavailable, "内容存储暂不可用，请稍后重试")
	default:
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}

// sectionFailures 拆出合并错误中每个分区的失败原因
func sectionFailures(err error) map[string]string {
	failures := make(map[string]string)
	var collect func(error)
	collect = func(e error) {
		if e == nil {
			return
		}
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				collect(inner)
			}
			return
		}
		var sectionErr *service.SectionError
		if errors.As(e, &sectionErr) {
			failures[string(sectionErr.Section)] = sectionErr.Err.Error()
		}
	}
	collect(err)
	return failures
}
