package push

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wavelink-backend/pkg/logger"
	"wavelink-backend/pkg/metrics"
)

// Provider defines the transport for delivering push notifications
type Provider interface {
	Send(ctx context.Context, notification *Notification, tokens []string) (*SendResult, error)
	Name() string
}

// SendResult contains the result of a push notification send operation
type SendResult struct {
	SuccessCount  int
	FailureCount  int
	InvalidTokens []string
	Errors        []error
}

// Notification represents a push notification
type Notification struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Priority string            `json:"priority,omitempty"` // high, normal
	Sound    string            `json:"sound,omitempty"`
	Category string            `json:"category,omitempty"`
	Badge    *int              `json:"badge,omitempty"`
}

// TokenType represents the type of push notification token
type TokenType string

const (
	TokenTypeFCM  TokenType = "fcm"  // Firebase Cloud Messaging
	TokenTypeAPNs TokenType = "apns" // Apple Push Notification Service
	TokenTypeWeb  TokenType = "web"  // Web Push
)

// Token represents a push notification token registered by a device
type Token struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Token     string    `json:"token"`
	Type      TokenType `json:"type"`
	Platform  string    `json:"platform,omitempty"` // ios, android, web
	Active    bool      `json:"active"`
	CreatedAt int64     `json:"created_at"`
	UpdatedAt int64     `json:"updated_at"`
}

// TokenRepository defines storage for device tokens, keyed by token value
type TokenRepository interface {
	Store(ctx context.Context, token *Token) error
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*Token, error)
	GetByToken(ctx context.Context, tokenStr string) (*Token, error)
	Delete(ctx context.Context, tokenStr string) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
	MarkInactive(ctx context.Context, tokenStr string) error
}

// Service sends call-related notifications to devices that have no live
// signaling connection. All sends are best effort.
type Service struct {
	provider Provider
	repo     TokenRepository
	metrics  *metrics.Metrics
}

// NewService creates a new push notification service. m may be nil.
func NewService(provider Provider, repo TokenRepository, m *metrics.Metrics) *Service {
	return &Service{
		provider: provider,
		repo:     repo,
		metrics:  m,
	}
}

// RegisterToken registers a device token for a user. Re-registering an
// existing token reactivates it.
func (s *Service) RegisterToken(ctx context.Context, token *Token) error {
	existing, err := s.repo.GetByToken(ctx, token.Token)
	if err == nil && existing != nil {
		existing.Active = true
		existing.Platform = token.Platform
		existing.Type = token.Type
		return s.repo.Store(ctx, existing)
	}
	return s.repo.Store(ctx, token)
}

// UnregisterToken removes a device token
func (s *Service) UnregisterToken(ctx context.Context, tokenStr string) error {
	return s.repo.Delete(ctx, tokenStr)
}

// UnregisterAllTokens removes all tokens for a user
func (s *Service) UnregisterAllTokens(ctx context.Context, userID uuid.UUID) error {
	return s.repo.DeleteByUserID(ctx, userID)
}

// NotifyIncomingCall rings the callee's registered devices. Having no active
// tokens is not an error; the live signaling path already carries the ring.
func (s *Service) NotifyIncomingCall(ctx context.Context, callee uuid.UUID, caller uuid.UUID, callType string, callID uuid.UUID) error {
	tokens, err := s.repo.GetByUserID(ctx, callee)
	if err != nil {
		return fmt.Errorf("failed to get push tokens: %w", err)
	}

	var active []string
	for _, token := range tokens {
		if token.Active {
			active = append(active, token.Token)
		}
	}
	if len(active) == 0 {
		return nil
	}

	title := "Incoming call"
	if callType == "video" {
		title = "Incoming video call"
	}

	notification := &Notification{
		Title:    title,
		Body:     "Tap to answer",
		Priority: "high",
		Sound:    "default",
		Category: "INCOMING_CALL",
		Data: map[string]string{
			"type":      "incoming_call",
			"call_id":   callID.String(),
			"caller_id": caller.String(),
			"call_type": callType,
			"timestamp": fmt.Sprintf("%d", time.Now().UnixMilli()),
		},
	}

	result, err := s.provider.Send(ctx, notification, active)
	if err != nil {
		s.metrics.RecordPushNotification(s.provider.Name(), true)
		return fmt.Errorf("failed to send incoming-call notification: %w", err)
	}

	s.metrics.RecordPushNotification(s.provider.Name(), result.FailureCount > 0)

	logger.Info("Incoming-call notification sent",
		zap.String("call_id", callID.String()),
		zap.Int("success_count", result.SuccessCount),
		zap.Int("failure_count", result.FailureCount),
		zap.Int("invalid_tokens", len(result.InvalidTokens)))

	if len(result.InvalidTokens) > 0 {
		s.handleInvalidTokens(ctx, result.InvalidTokens)
	}

	return nil
}

// handleInvalidTokens marks tokens the provider rejected so they are skipped
// on later sends
func (s *Service) handleInvalidTokens(ctx context.Context, invalidTokens []string) {
	for _, tokenStr := range invalidTokens {
		if err := s.repo.MarkInactive(ctx, tokenStr); err != nil {
			logger.Warn("Failed to mark push token as inactive",
				zap.String("token", maskToken(tokenStr)),
				zap.Error(err))
		}
	}
}

// maskToken returns a safe masked version of a push token for logging
func maskToken(token string) string {
	if len(token) <= 16 {
		return "********"
	}
	return token[:8] + "..." + token[len(token)-8:]
}

// MockProvider logs instead of sending. Used in development and tests.
type MockProvider struct {
	NotificationsSent int
}

// Send implements Provider interface
func (m *MockProvider) Send(ctx context.Context, notification *Notification, tokens []string) (*SendResult, error) {
	m.NotificationsSent++

	logger.Debug("MockProvider: sending notification",
		zap.String("title", notification.Title),
		zap.Int("token_count", len(tokens)))

	return &SendResult{
		SuccessCount: len(tokens),
	}, nil
}

// Name implements Provider interface
func (m *MockProvider) Name() string { return "mock" }
