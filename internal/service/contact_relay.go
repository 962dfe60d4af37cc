package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/portfolio/internal/logging"
	"go.uber.org/zap"
)

// DefaultContactEndpoint 邮件中继的默认提交地址
const DefaultContactEndpoint = "https://api.web3forms.com/submit"

// DefaultContactFromName 邮件中显示的发件人名称
const DefaultContactFromName = "Portfolio Contact Form"

var (
	// ErrRelayNotConfigured 未配置中继 access key
	ErrRelayNotConfigured = errors.New("contact relay is not configured")
	// ErrRelayTransport 网络错误或中继返回非 2xx
	ErrRelayTransport = errors.New("contact relay request failed")
	// ErrRelayRejected 中继返回 success=false
	ErrRelayRejected = errors.New("contact relay rejected the submission")
	// ErrContactInvalid 表单字段不完整
	ErrContactInvalid = errors.New("invalid contact submission")
)

var formValidator = validator.New()

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ContactSubmission 访客填写的联系表单
type ContactSubmission struct {
	FirstName string `validate:"required,max=80"`
	LastName  string `validate:"max=80"`
	Email     string `validate:"required,email,max=255"`
	Subject   string `validate:"max=255"`
	Message   string `validate:"required,max=5000"`
}

// FullName 拼接姓名
func (s ContactSubmission) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(s.FirstName) + " " + strings.TrimSpace(s.LastName))
}

func (s ContactSubmission) normalized() ContactSubmission {
	return ContactSubmission{
		FirstName: strings.TrimSpace(s.FirstName),
		LastName:  strings.TrimSpace(s.LastName),
		Email:     strings.TrimSpace(s.Email),
		Subject:   strings.TrimSpace(s.Subject),
		Message:   strings.TrimSpace(s.Message),
	}
}

// Validate 校验必填项
func (s ContactSubmission) Validate() error {
	if err := formValidator.Struct(s.normalized()); err != nil {
		return fmt.Errorf("%w: %v", ErrContactInvalid, err)
	}
	return nil
}

type relayRequest struct {
	AccessKey string `json:"access_key"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	FromName  string `json:"from_name"`
	ReplyTo   string `json:"replyto"`
}

type relayResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RelayError 携带中继返回的提示信息
type RelayError struct {
	Kind    error
	Status  int
	Message string
}

func (e *RelayError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *RelayError) Unwrap() error {
	return e.Kind
}

// ContactRelay 将联系表单转发到第三方邮件中继
type ContactRelay struct {
	http      httpDoer
	endpoint  string
	accessKey string
	fromName  string
	logger    *zap.Logger
}

// NewContactRelay 构造 ContactRelay，endpoint 与 fromName 为空时使用默认值
func NewContactRelay(accessKey, endpoint, fromName string, logger *zap.Logger) *ContactRelay {
	r := &ContactRelay{
		http:      &http.Client{Timeout: 15 * time.Second},
		accessKey: strings.TrimSpace(accessKey),
		fromName:  strings.TrimSpace(fromName),
		logger:    logging.OrNop(logger).Named("contact-relay"),
	}
	r.SetEndpoint(endpoint)
	if r.fromName == "" {
		r.fromName = DefaultContactFromName
	}
	return r
}

// SetHTTPClient 替换 HTTP 客户端，主要面向测试场景。
func (r *ContactRelay) SetHTTPClient(client httpDoer) {
	if client == nil {
		r.http = &http.Client{Timeout: 15 * time.Second}
		return
	}
	r.http = client
}

// SetEndpoint 覆盖中继地址
func (r *ContactRelay) SetEndpoint(endpoint string) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		trimmed = DefaultContactEndpoint
	}
	r.endpoint = trimmed
}

// Configured 判断是否配置了 access key
func (r *ContactRelay) Configured() bool {
	return r != nil && r.accessKey != ""
}

// Submit 发送一次表单，不做重试
func (r *ContactRelay) Submit(ctx context.Context, submission ContactSubmission) error {
	if !r.Configured() {
		return ErrRelayNotConfigured
	}
	if err := submission.Validate(); err != nil {
		return err
	}
	sub := submission.normalized()

	subject := sub.Subject
	if subject == "" {
		subject = "New message from " + sub.FullName()
	}

	body, err := json.Marshal(relayRequest{
		AccessKey: r.accessKey,
		Name:      sub.FullName(),
		Email:     sub.Email,
		Subject:   subject,
		Message:   sub.Message,
		FromName:  r.fromName,
		ReplyTo:   sub.Email,
	})
	if err != nil {
		return fmt.Errorf("encode relay request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		r.logger.Warn("relay request failed", zap.Error(err))
		return &RelayError{Kind: ErrRelayTransport, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.Warn("relay returned error status", zap.Int("status", resp.StatusCode))
		return &RelayError{Kind: ErrRelayTransport, Status: resp.StatusCode, Message: resp.Status}
	}

	var parsed relayResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return &RelayError{Kind: ErrRelayTransport, Status: resp.StatusCode, Message: "invalid relay response"}
	}
	if !parsed.Success {
		r.logger.Info("relay rejected submission", zap.String("message", parsed.Message))
		return &RelayError{Kind: ErrRelayRejected, Status: resp.StatusCode, Message: strings.TrimSpace(parsed.Message)}
	}

	r.logger.Info("relayed contact message", zap.String("email", sub.Email))
	return nil
}
