package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
	"yoi_portal_backend/internal/config"
	"yoi_portal_backend/internal/model"
	"yoi_portal_backend/internal/repository"
	"yoi_portal_backend/pkg/logger"
	"yoi_portal_backend/pkg/monitoring"

	"github.com/go-resty/resty/v2"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	unknownModule   = "Unknown Module"
	unknownSequence = "Unknown Step"
	unknownEmail    = "unknown"

	// 异步通知的独立超时
	notifyTimeout = 15 * time.Second
)

// StepCompletedPayload webhook 请求体
type StepCompletedPayload struct {
	UserName      string `json:"userName"`
	UserEmail     string `json:"userEmail"`
	ModuleTitle   string `json:"moduleTitle"`
	SequenceTitle string `json:"sequenceTitle"`
	CompletedAt   string `json:"completedAt"`
}

// Mailer 邮件发送
type Mailer interface {
	Send(ctx context.Context, toName, toEmail, subject, text string) error
}

// SendgridMailer 通过 SendGrid v3 API 发送邮件
type SendgridMailer struct {
	key  string
	from *sgmail.Email
}

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

func NewSendgridMailer(key, fromName, fromEmail string) *SendgridMailer {
	return &SendgridMailer{key: key, from: sgmail.NewEmail(fromName, fromEmail)}
}

func (m *SendgridMailer) Send(ctx context.Context, toName, toEmail, subject, text string) error {
	p := sgmail.NewPersonalization()
	p.Subject = subject
	p.AddTos(sgmail.NewEmail(toName, toEmail))

	msg := sgmail.NewV3Mail()
	msg.SetFrom(m.from)
	msg.AddPersonalizations(p)
	msg.AddContent(sgmail.NewContent("text/plain", text))

	req := sendgrid.GetRequest(m.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(msg)

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid returned %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

type NotificationService struct {
	NotificationRepo *repository.NotificationRepository
	UserRepo         *repository.UserRepository
	ModuleRepo       *repository.ModuleRepository
	SequenceRepo     *repository.SequenceRepository
	SubmissionRepo   *repository.SubmissionRepository

	mu     sync.RWMutex
	cfg    config.NotificationConfig
	client *resty.Client
	mailer Mailer

	wg sync.WaitGroup
}

func NewNotificationService(
	cfg config.NotificationConfig,
	notificationRepo *repository.NotificationRepository,
	userRepo *repository.UserRepository,
	moduleRepo *repository.ModuleRepository,
	sequenceRepo *repository.SequenceRepository,
	submissionRepo *repository.SubmissionRepository,
) *NotificationService {
	s := &NotificationService{
		NotificationRepo: notificationRepo,
		UserRepo:         userRepo,
		ModuleRepo:       moduleRepo,
		SequenceRepo:     sequenceRepo,
		SubmissionRepo:   submissionRepo,
	}
	s.UpdateConfig(cfg)
	return s
}

// UpdateConfig 配置热更新时替换 webhook 客户端和邮件发送器
func (s *NotificationService) UpdateConfig(cfg config.NotificationConfig) {
	timeout := cfg.WebhookTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	var mailer Mailer
	if cfg.SendgridAPIKey != "" && cfg.FromEmail != "" {
		mailer = NewSendgridMailer(cfg.SendgridAPIKey, cfg.FromName, cfg.FromEmail)
	}

	s.mu.Lock()
	s.cfg = cfg
	s.client = client
	s.mailer = mailer
	s.mu.Unlock()
}

// SetMailer 替换邮件发送器
func (s *NotificationService) SetMailer(m Mailer) {
	s.mu.Lock()
	s.mailer = m
	s.mu.Unlock()
}

func (s *NotificationService) snapshot() (config.NotificationConfig, *resty.Client, Mailer) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg, s.client, s.mailer
}

// Go 在后台执行通知，使用独立于请求的超时上下文
func (s *NotificationService) Go(name string, fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Log.Error("Notification panicked", zap.String("job", name), zap.Any("panic", r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		fn(ctx)
	}()
}

// Wait 等待所有后台通知结束
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

func record(channel string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	monitoring.Notifications.WithLabelValues(channel, result).Inc()
}

type stepContext struct {
	userName      string
	userEmail     string
	moduleTitle   string
	sequenceTitle string
}

// describe 查询展示用的名称，查询失败时使用默认值
func (s *NotificationService) describe(ctx context.Context, userID, moduleID, sequenceID string) stepContext {
	sc := stepContext{
		userEmail:     unknownEmail,
		moduleTitle:   unknownModule,
		sequenceTitle: unknownSequence,
	}
	if user, err := s.UserRepo.FindByID(ctx, userID); err == nil && user != nil {
		if user.Email != "" {
			sc.userEmail = user.Email
		}
		sc.userName = user.DisplayName()
	}
	if sc.userName == "" {
		sc.userName = sc.userEmail
	}
	if m, err := s.ModuleRepo.FindByID(ctx, moduleID); err == nil && m != nil {
		sc.moduleTitle = m.Title
	}
	if seq, err := s.SequenceRepo.FindByID(ctx, nil, sequenceID); err == nil && seq != nil {
		sc.sequenceTitle = seq.Title
	}
	return sc
}

// CompletionMessage 完成通知的文案
func CompletionMessage(userName, sequenceTitle, moduleTitle string) string {
	return fmt.Sprintf("%s completed \"%s\" in %s", userName, sequenceTitle, moduleTitle)
}

// StepCompleted 记录站内通知并调用 webhook，两个通道相互独立，失败只记录日志
func (s *NotificationService) StepCompleted(ctx context.Context, userID, moduleID, sequenceID string, completedAt time.Time) {
	sc := s.describe(ctx, userID, moduleID, sequenceID)
	payload := StepCompletedPayload{
		UserName:      sc.userName,
		UserEmail:     sc.userEmail,
		ModuleTitle:   sc.moduleTitle,
		SequenceTitle: sc.sequenceTitle,
		CompletedAt:   completedAt.UTC().Format(time.RFC3339),
	}

	raw, _ := json.Marshal(payload)
	n := &model.Notification{
		Type:          model.NotificationStepCompleted,
		UserID:        userID,
		UserEmail:     sc.userEmail,
		UserName:      sc.userName,
		ModuleID:      moduleID,
		ModuleTitle:   sc.moduleTitle,
		SequenceID:    sequenceID,
		SequenceTitle: sc.sequenceTitle,
		Message:       CompletionMessage(sc.userName, sc.sequenceTitle, sc.moduleTitle),
		Payload:       datatypes.JSON(raw),
	}
	err := s.NotificationRepo.Create(ctx, n)
	record("record", err)
	if err != nil {
		logger.Log.Warn("Failed to record completion notification",
			zap.String("user_id", userID),
			zap.String("sequence_id", sequenceID),
			zap.Error(err))
	}

	err = s.postWebhook(ctx, payload)
	if err != nil {
		record("webhook", err)
		logger.Log.Warn("Completion webhook failed",
			zap.String("user_id", userID),
			zap.String("sequence_id", sequenceID),
			zap.Error(err))
	}
}

// postWebhook 未配置地址时跳过
func (s *NotificationService) postWebhook(ctx context.Context, payload StepCompletedPayload) error {
	cfg, client, _ := s.snapshot()
	if cfg.WebhookURL == "" {
		return nil
	}
	resp, err := client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(cfg.WebhookURL)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned %d", resp.StatusCode())
	}
	record("webhook", nil)
	return nil
}

// SubmissionReceived 新的视频提交，记录通知并邮件提醒管理员
func (s *NotificationService) SubmissionReceived(ctx context.Context, sub *model.VideoSubmission) {
	sc := s.describe(ctx, sub.UserID, sub.ModuleID, sub.SequenceID)
	n := &model.Notification{
		Type:          model.NotificationSubmissionReceived,
		UserID:        sub.UserID,
		UserEmail:     sc.userEmail,
		UserName:      sc.userName,
		ModuleID:      sub.ModuleID,
		ModuleTitle:   sc.moduleTitle,
		SequenceID:    sub.SequenceID,
		SequenceTitle: sc.sequenceTitle,
		Message:       fmt.Sprintf("%s submitted a video for %q in %s", sc.userName, sc.sequenceTitle, sc.moduleTitle),
	}
	err := s.NotificationRepo.Create(ctx, n)
	record("record", err)
	if err != nil {
		logger.Log.Warn("Failed to record submission notification",
			zap.String("submission_id", sub.ID),
			zap.Error(err))
	}

	cfg, _, mailer := s.snapshot()
	if mailer == nil || cfg.AdminEmail == "" {
		return
	}
	err = mailer.Send(ctx, "", cfg.AdminEmail, "New video submission", n.Message)
	record("email", err)
	if err != nil {
		logger.Log.Warn("Failed to email submission notice",
			zap.String("submission_id", sub.ID),
			zap.Error(err))
	}
}

// ResponseReady 导师回应后邮件通知学员
func (s *NotificationService) ResponseReady(ctx context.Context, userID, moduleID, sequenceID string) {
	_, _, mailer := s.snapshot()
	if mailer == nil {
		return
	}
	sc := s.describe(ctx, userID, moduleID, sequenceID)
	if sc.userEmail == unknownEmail {
		return
	}
	text := fmt.Sprintf("Hi %s,\n\nYour instructor has responded to %q in %s. Sign in to watch the response and continue your journey.",
		sc.userName, sc.sequenceTitle, sc.moduleTitle)
	err := mailer.Send(ctx, sc.userName, sc.userEmail, "Your instructor has responded", text)
	record("email", err)
	if err != nil {
		logger.Log.Warn("Failed to email response notice",
			zap.String("user_id", userID),
			zap.String("sequence_id", sequenceID),
			zap.Error(err))
	}
}

// ReviewDigest 统计超过 staleAfter 仍未审核的提交，有积压时写入一条汇总通知
func (s *NotificationService) ReviewDigest(ctx context.Context, staleAfter time.Duration) (int64, error) {
	count, err := s.SubmissionRepo.CountPendingBefore(ctx, time.Now().Add(-staleAfter))
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	raw, _ := json.Marshal(map[string]interface{}{
		"pending":    count,
		"staleAfter": staleAfter.String(),
	})
	n := &model.Notification{
		Type:    model.NotificationReviewDigest,
		Message: fmt.Sprintf("%d submission(s) waiting for review longer than %s", count, staleAfter),
		Payload: datatypes.JSON(raw),
	}
	err = s.NotificationRepo.Create(ctx, n)
	record("record", err)
	return count, err
}

func (s *NotificationService) ListForAdmin(ctx context.Context, unreadOnly bool, page, limit int) ([]model.Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.NotificationRepo.List(ctx, unreadOnly, page, limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, id string) (bool, error) {
	return s.NotificationRepo.MarkRead(ctx, id)
}
