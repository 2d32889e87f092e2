// internal/service/notification/service.go
package notification

import (
	"context"
	"sync"
	"time"

	"gitwallet-service/internal/domain/billing"
	"gitwallet-service/internal/domain/checkout"
	"gitwallet-service/internal/domain/organization"
	"gitwallet-service/internal/domain/prospect"
	"gitwallet-service/internal/domain/subscription"
	"gitwallet-service/internal/domain/tier"
	"gitwallet-service/internal/domain/websocket"
	"gitwallet-service/internal/service/email"

	"go.uber.org/zap"
)

type Mailer interface {
	Send(to, subject, bodyHTML string) error
}

type Renderer interface {
	Render(name string, vars map[string]any) (string, string, error)
}

// Publisher pushes dashboard events to an organization's live clients.
type Publisher interface {
	PublishToOrganization(organizationID string, eventType websocket.EventType, data interface{})
}

// NotificationService tells vendors about leads, sales and cancellations by
// email and over the dashboard websocket. Nothing it does can fail the
// operation that triggered it.
type NotificationService struct {
	mailer      Mailer
	templates   Renderer
	hub         Publisher
	baseURL     string
	sendTimeout time.Duration
	logger      *zap.Logger
	wg          sync.WaitGroup
}

func NewNotificationService(mailer Mailer, templates Renderer, hub Publisher, baseURL string, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		mailer:      mailer,
		templates:   templates,
		hub:         hub,
		baseURL:     baseURL,
		sendTimeout: 30 * time.Second,
		logger:      logger,
	}
}

// SendEmail renders and sends a template in the background. Failures are
// logged only.
func (s *NotificationService) SendEmail(ctx context.Context, templateName string, vars map[string]any, recipient string) {
	if s.mailer == nil || recipient == "" {
		s.logger.Debug("email skipped", zap.String("template", templateName), zap.Bool("has_recipient", recipient != ""))
		return
	}

	subject, body, err := s.templates.Render(templateName, vars)
	if err != nil {
		s.logger.Error("failed to render email", zap.String("template", templateName), zap.Error(err))
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		done := make(chan error, 1)
		go func() { done <- s.mailer.Send(recipient, subject, body) }()

		// detached from the request; only the send timeout applies
		timer := time.NewTimer(s.sendTimeout)
		defer timer.Stop()

		select {
		case err := <-done:
			if err != nil {
				s.logger.Error("failed to send email",
					zap.String("template", templateName),
					zap.String("recipient", recipient),
					zap.Error(err),
				)
				return
			}
			s.logger.Info("email sent", zap.String("template", templateName), zap.String("recipient", recipient))
		case <-timer.C:
			s.logger.Error("email send timed out", zap.String("template", templateName), zap.String("recipient", recipient))
		}
	}()
}

// Wait blocks until background sends have finished.
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

func (s *NotificationService) publish(orgID string, eventType websocket.EventType, data interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.PublishToOrganization(orgID, eventType, data)
}

func (s *NotificationService) dashboardURL(path string) string {
	if s.baseURL == "" {
		return ""
	}
	return s.baseURL + path
}

// ProspectCaptured announces a contact-form submission.
func (s *NotificationService) ProspectCaptured(ctx context.Context, org *organization.Organization, p *prospect.Prospect, t *tier.Tier) {
	s.publish(org.ID, websocket.EventTypeProspectCreated, websocket.ProspectData{
		ProspectID: p.ID,
		TierID:     t.ID,
		Name:       p.Name,
		Company:    p.CompanyName,
		Status:     string(p.Status),
	})

	s.SendEmail(ctx, email.TemplateProspectCreated, map[string]any{
		"TierName":      t.Name,
		"ProspectName":  p.Name,
		"ProspectEmail": p.Email,
		"Company":       p.CompanyName,
		"Context":       p.Context,
		"DashboardURL":  s.dashboardURL("/dashboard/prospects/" + p.ID),
	}, org.NotificationEmail)
}

func (s *NotificationService) ProspectQualified(orgID string, p *prospect.Prospect) {
	s.publish(orgID, websocket.EventTypeProspectQualified, websocket.ProspectData{
		ProspectID: p.ID,
		Name:       p.Name,
		Company:    p.CompanyName,
		Status:     string(p.Status),
	})
}

// PurchaseCompleted announces a new subscription or charge.
func (s *NotificationService) PurchaseCompleted(ctx context.Context, org *organization.Organization, t *tier.Tier, result *checkout.Result) {
	data := websocket.PurchaseData{
		Kind:     string(result.Kind),
		RecordID: result.ID(),
		TierID:   t.ID,
	}
	switch {
	case result.Subscription != nil:
		data.BuyerID = result.Subscription.BuyerID
		data.Amount = result.Subscription.Amount
		data.Currency = result.Subscription.Currency
	case result.Charge != nil:
		data.BuyerID = result.Charge.BuyerID
		data.Amount = result.Charge.Amount
		data.Currency = result.Charge.Currency
	}
	data.Display = tier.FormatAmount(data.Amount, data.Currency)

	s.publish(org.ID, websocket.EventTypePurchaseCompleted, data)

	s.SendEmail(ctx, email.TemplatePurchaseCompleted, map[string]any{
		"Kind":         string(result.Kind),
		"TierName":     t.Name,
		"Price":        data.Display,
		"DashboardURL": s.dashboardURL("/dashboard/customers"),
	}, org.NotificationEmail)
}

// SubscriptionCancelled announces a cancellation with the remaining access.
func (s *NotificationService) SubscriptionCancelled(ctx context.Context, org *organization.Organization, tierName string, sub *subscription.Subscription, now time.Time) {
	s.publish(org.ID, websocket.EventTypeSubscriptionCancelled, websocket.PurchaseData{
		Kind:        "subscription",
		RecordID:    sub.ID,
		TierID:      sub.TierID,
		BuyerID:     sub.BuyerID,
		ActiveUntil: sub.ActiveUntil,
	})

	s.SendEmail(ctx, email.TemplateSubscriptionCancelled, map[string]any{
		"TierName":    tierName,
		"StatusLabel": sub.StatusLabel(now),
	}, org.NotificationEmail)
}

// BillingUpdated pushes the organization's new plan status to its dashboard.
func (s *NotificationService) BillingUpdated(orgID string, info billing.SubscriptionInfo) {
	s.publish(orgID, websocket.EventTypeBillingUpdated, info)
}
