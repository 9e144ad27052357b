package funding

import (
	"context"
	"errors"
	"fmt"

	"ecofund/internal/domain"
	"ecofund/internal/payment"
)

// ProviderStripe tags stored webhook events.
const ProviderStripe = "stripe"

// StoreWebhookEvent queues a verified provider event. It reports false for a
// redelivery of an event that is already stored.
func (s *Service) StoreWebhookEvent(ctx context.Context, evt *payment.Event, payload []byte) (bool, error) {
	if s.events == nil {
		return false, errors.New("webhook event store not configured")
	}
	stored, err := s.events.Save(ctx, &domain.WebhookEvent{
		Provider:        ProviderStripe,
		ProviderEventID: evt.ID,
		EventType:       evt.Type,
		Payload:         payload,
	})
	if err != nil {
		return false, err
	}
	s.logger.Info().
		Str("event_id", evt.ID).
		Str("event_type", evt.Type).
		Bool("duplicate", !stored).
		Msg("webhook event received")
	return stored, nil
}

// HandleEvent applies one provider event and reports how it was settled.
func (s *Service) HandleEvent(ctx context.Context, evt *payment.Event) (domain.WebhookEventStatus, error) {
	switch evt.Type {
	case payment.EventCheckoutCompleted, payment.EventCheckoutAsyncPaymentOK:
		if evt.Metadata != nil && !payment.IsCampaignCheckout(evt.Metadata) {
			return domain.WebhookEventIgnored, nil
		}
		_, err := s.Reconcile(ctx, ReconcileInput{SessionID: evt.SessionID, Actor: SystemActor})
		switch {
		case err == nil:
			return domain.WebhookEventProcessed, nil
		case errors.Is(err, domain.ErrNotPaid):
			// Delayed payment methods complete later through async_payment_succeeded.
			return domain.WebhookEventIgnored, nil
		case errors.Is(err, ErrNotCampaignCheckout):
			return domain.WebhookEventIgnored, nil
		}
		return domain.WebhookEventFailed, err
	case payment.EventChargeRefunded:
		if _, err := s.RefundByPaymentIntent(ctx, evt.PaymentIntentID, evt.AmountRefunded); err != nil {
			return domain.WebhookEventFailed, err
		}
		return domain.WebhookEventProcessed, nil
	}
	return domain.WebhookEventIgnored, nil
}

// ProcessNextWebhook claims one stored event and settles it. It reports false
// when no event is waiting.
func (s *Service) ProcessNextWebhook(ctx context.Context) (bool, error) {
	if s.events == nil {
		return false, errors.New("webhook event store not configured")
	}
	stored, err := s.events.Claim(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("claim webhook event: %w", err)
	}
	log := s.logger.With().
		Str("event_id", stored.ProviderEventID).
		Str("event_type", stored.EventType).
		Int("attempt", stored.Attempts).
		Logger()

	evt, err := payment.ParseEvent(stored.Payload)
	if err != nil {
		log.Error().Err(err).Msg("stored webhook payload unreadable")
		return true, s.events.MarkDone(ctx, stored.ID, domain.WebhookEventIgnored, err.Error())
	}

	status, handleErr := s.HandleEvent(ctx, evt)
	lastError := ""
	if handleErr != nil {
		lastError = handleErr.Error()
		log.Warn().Err(handleErr).Msg("webhook event failed")
	} else {
		log.Info().Str("status", string(status)).Msg("webhook event settled")
	}
	if err := s.events.MarkDone(ctx, stored.ID, status, lastError); err != nil {
		return true, fmt.Errorf("finish webhook event: %w", err)
	}
	return true, nil
}
