package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// CompanyServiceDeps bundles collaborators required to construct the company service.
type CompanyServiceDeps struct {
	Notifications NotificationPublisher
	Clock         func() time.Time
	IDGenerator   func() string
	Logger        func(ctx context.Context, event string, fields map[string]any)
}

type companyService struct {
	notifications NotificationPublisher
	clock         func() time.Time
	newID         func() string
	logger        func(context.Context, string, map[string]any)
}

// NewCompanyService wires the notification publisher into a CompanyService.
func NewCompanyService(deps CompanyServiceDeps) (CompanyService, error) {
	if deps.Notifications == nil {
		return nil, errors.New("company service: notification publisher is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &companyService{
		notifications: deps.Notifications,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// NotifyApproval queues the approval notice for the company contact. A publish failure is
// logged and swallowed like every other notification.
func (s *companyService) NotifyApproval(ctx context.Context, cmd CompanyApprovalCommand) error {
	company := cmd.Company
	if strings.TrimSpace(company.ID) == "" {
		return fmt.Errorf("%w: company id is required", ErrCompanyInvalidInput)
	}
	email := strings.TrimSpace(company.ContactEmail)
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: contact email is required", ErrCompanyInvalidInput)
	}
	if !company.Approved {
		return fmt.Errorf("%w: company %s is not approved", ErrCompanyInvalidInput, company.ID)
	}

	message := NotificationMessage{
		ID:         notificationIDPrefix + s.newID(),
		Kind:       NotificationCompanyApproval,
		Recipient:  email,
		OccurredAt: s.clock(),
		Company:    newCompanyNotification(company),
	}
	if _, err := s.notifications.PublishNotification(ctx, message); err != nil {
		s.logger(ctx, "company.notification.publish.failed", map[string]any{
			"companyId": company.ID,
			"id":        message.ID,
			"error":     fmt.Errorf("%w: %w", ErrNotificationFailure, err).Error(),
		})
		return nil
	}

	s.logger(ctx, "company.approval.notified", map[string]any{
		"companyId": company.ID,
		"actorId":   strings.TrimSpace(cmd.ActorID),
	})
	return nil
}
