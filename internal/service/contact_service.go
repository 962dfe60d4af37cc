package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/portfolio/internal/db"
	"github.com/portfolio/internal/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ContactFormState 前台联系表单的状态
type ContactFormState string

const (
	ContactFormIdle    ContactFormState = "idle"
	ContactFormSuccess ContactFormState = "success"
	ContactFormError   ContactFormState = "error"
)

// 展示给访客的提示文案
const (
	contactSuccessMessage       = "Thank you! Your message has been sent successfully."
	contactNetworkErrorMessage  = "Network error. Please check your connection and try again."
	contactFailedMessage        = "Failed to send message. Please try again."
	contactNotConfiguredMessage = "The contact form is not configured yet. Please reach out by email instead."
	contactInvalidMessage       = "Please enter your name, a valid email address and a message."
)

// ContactFormStatus 一次提交之后表单应处的状态。ResetForm 为 true 时清空输入。
type ContactFormStatus struct {
	State     ContactFormState `json:"state"`
	Message   string           `json:"message"`
	ResetForm bool             `json:"resetForm"`
}

// ContactStatusFor 根据提交结果推导表单状态
func ContactStatusFor(err error) ContactFormStatus {
	if err == nil {
		return ContactFormStatus{State: ContactFormSuccess, Message: contactSuccessMessage, ResetForm: true}
	}

	status := ContactFormStatus{State: ContactFormError}
	var relayErr *RelayError
	switch {
	case errors.Is(err, ErrContactInvalid):
		status.Message = contactInvalidMessage
	case errors.Is(err, ErrRelayNotConfigured):
		status.Message = contactNotConfiguredMessage
	case errors.Is(err, ErrRelayTransport):
		status.Message = contactNetworkErrorMessage
	case errors.As(err, &relayErr) && relayErr.Message != "":
		status.Message = relayErr.Message
	default:
		status.Message = contactFailedMessage
	}
	return status
}

// ContactService 校验联系表单、记录留言并转发到邮件中继
type ContactService struct {
	db     *gorm.DB
	relay  *ContactRelay
	logger *zap.Logger
}

// NewContactService 构造 ContactService
func NewContactService(gdb *gorm.DB, relay *ContactRelay, logger *zap.Logger) *ContactService {
	return &ContactService{db: gdb, relay: relay, logger: logging.OrNop(logger).Named("contact")}
}

// Relay 返回底层中继
func (s *ContactService) Relay() *ContactRelay {
	return s.relay
}

// Submit 校验后转发表单，并记录投递结果。返回的记录在转发失败时同样有效。
func (s *ContactService) Submit(ctx context.Context, submission ContactSubmission) (*db.ContactMessage, error) {
	if err := submission.Validate(); err != nil {
		return nil, err
	}
	sub := submission.normalized()

	relayErr := s.relay.Submit(ctx, sub)

	record := &db.ContactMessage{
		PublicID: uuid.NewString(),
		Name:     sub.FullName(),
		Email:    sub.Email,
		Subject:  sub.Subject,
		Message:  sub.Message,
		Status:   db.ContactStatusSent,
	}
	if relayErr != nil {
		record.Status = db.ContactStatusFailed
		record.Error = truncateRunes(relayErr.Error(), 500)
	}

	if s.db != nil {
		if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
			s.logger.Error("record contact message failed", zap.Error(err))
		}
	}

	return record, relayErr
}

// ListMessages 按时间倒序返回最近的留言
func (s *ContactService) ListMessages(limit int) ([]db.ContactMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var items []db.ContactMessage
	if err := s.db.Order("created_at DESC, id DESC").Limit(limit).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list contact messages: %w", err)
	}
	return items, nil
}

// CountMessages 统计留言数量
func (s *ContactService) CountMessages() (int64, error) {
	var count int64
	if err := s.db.Model(&db.ContactMessage{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count contact messages: %w", err)
	}
	return count, nil
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
