package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/portfolio/internal/service"
	"go.uber.org/zap"
)

type contactRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
}

// SubmitContact 接收访客留言并转发到邮件中继
func (a *API) SubmitContact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, service.ContactStatusFor(service.ErrContactInvalid))
		return
	}

	_, err := a.contact.Submit(c.Request.Context(), service.ContactSubmission{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Subject:   req.Subject,
		Message:   req.Message,
	})
	status := service.ContactStatusFor(err)

	switch {
	case err == nil:
		c.JSON(http.StatusOK, status)
	case errors.Is(err, service.ErrContactInvalid):
		c.JSON(http.StatusBadRequest, status)
	case errors.Is(err, service.ErrRelayNotConfigured):
		a.logger.Warn("contact relay not configured")
		c.JSON(http.StatusServiceUnavailable, status)
	default:
		a.logger.Warn("contact relay failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, status)
	}
}

// ListContactMessages 返回后台收件箱中的最近留言
func (a *API) ListContactMessages(c *gin.Context) {
	limit := parsePositiveInt(c.DefaultQuery("limit", "50"), 50)

	messages, err := a.contact.ListMessages(limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取留言失败")
		return
	}

	items := make([]gin.H, 0, len(messages))
	for _, m := range messages {
		items = append(items, gin.H{
			"id":        m.PublicID,
			"name":      m.Name,
			"email":     m.Email,
			"subject":   m.Subject,
			"message":   m.Message,
			"status":    m.Status,
			"error":     m.Error,
			"createdAt": m.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"messages": items})
}
