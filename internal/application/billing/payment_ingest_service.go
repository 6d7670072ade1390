package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gridpos/backend/internal/domain/billing"
	"github.com/gridpos/backend/internal/domain/shared"
	"github.com/gridpos/backend/internal/domain/tenancy"
	"github.com/gridpos/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// PaymentIngestService processes payment gateway callbacks. Processing
// is exactly-once: a Redis SETNX fast path short-circuits replays, and
// the (provider, external_id) unique index in payment_events is the
// authority when the fast path misses. Callbacks that cannot be
// matched to an invoice are stored unprocessed for manual review, never
// dropped.
type PaymentIngestService struct {
	eventRepo   billing.PaymentEventRepository
	invoiceRepo billing.InvoiceRepository
	subRepo     billing.SubscriptionRepository
	tenantRepo  tenancy.TenantRepository
	idempotency shared.IdempotencyStore
	eventBus    shared.EventPublisher
	cfg         config.BillingConfig
	logger      *zap.Logger
}

// NewPaymentIngestService creates a new PaymentIngestService
func NewPaymentIngestService(
	eventRepo billing.PaymentEventRepository,
	invoiceRepo billing.InvoiceRepository,
	subRepo billing.SubscriptionRepository,
	tenantRepo tenancy.TenantRepository,
	idempotency shared.IdempotencyStore,
	eventBus shared.EventPublisher,
	cfg config.BillingConfig,
	logger *zap.Logger,
) *PaymentIngestService {
	return &PaymentIngestService{
		eventRepo:   eventRepo,
		invoiceRepo: invoiceRepo,
		subRepo:     subRepo,
		tenantRepo:  tenantRepo,
		idempotency: idempotency,
		eventBus:    eventBus,
		cfg:         cfg,
		logger:      logger,
	}
}

// VerifySignature checks the HMAC-SHA256 signature of a raw callback
// body against the provider's shared secret. Comparison is constant
// time. Unknown providers fail closed.
func (s *PaymentIngestService) VerifySignature(provider string, body []byte, signature string) error {
	secret, ok := s.cfg.Providers[provider]
	if !ok || secret == "" {
		return billing.ErrAuthenticityCheckFailed
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return billing.ErrAuthenticityCheckFailed
	}
	return nil
}

// Ingest records and applies one verified callback
func (s *PaymentIngestService) Ingest(ctx context.Context, provider string, req CallbackRequest, rawPayload string) (*CallbackResult, error) {
	outcome := billing.PaymentOutcome(req.Outcome)
	event, err := billing.NewPaymentEvent(provider, req.ExternalID, req.Amount, req.Currency, outcome, rawPayload, time.Now())
	if err != nil {
		return nil, err
	}

	// Fast path: a replay we have already seen recently.
	if s.idempotency != nil {
		processed, err := s.idempotency.IsProcessed(ctx, event.DedupKey())
		if err != nil {
			// Cache failure is not fatal, the unique index still
			// protects us.
			s.logger.Warn("idempotency fast path unavailable", zap.Error(err))
		} else if processed {
			return s.duplicateResult(ctx, provider, req.ExternalID)
		}
	}

	if err := s.eventRepo.Insert(ctx, event); err != nil {
		if errors.Is(err, billing.ErrDuplicateBillingEvent) {
			return s.duplicateResult(ctx, provider, req.ExternalID)
		}
		return nil, err
	}

	result, err := s.apply(ctx, event, req)
	if err != nil {
		return nil, err
	}

	if s.idempotency != nil {
		if _, err := s.idempotency.MarkProcessed(ctx, event.DedupKey(), s.cfg.IdempotencyTTL); err != nil {
			s.logger.Warn("failed to record idempotency key", zap.Error(err))
		}
	}
	return result, nil
}

// apply matches the stored event against an invoice and drives the
// subscription state machine.
func (s *PaymentIngestService) apply(ctx context.Context, event *billing.PaymentEvent, req CallbackRequest) (*CallbackResult, error) {
	invoice, sub, err := s.match(ctx, req)
	if err != nil {
		if errors.Is(err, billing.ErrUnmatchedBillingEvent) {
			// Keep the event unprocessed for manual review.
			s.publish(ctx, billing.NewPaymentEventUnmatchedEvent(event))
			s.logger.Warn("unmatched billing event stored for review",
				zap.String("provider", event.Provider),
				zap.String("external_id", event.ExternalID),
			)
			return &CallbackResult{EventID: event.ID, Matched: false}, nil
		}
		return nil, err
	}

	now := time.Now()
	switch event.Outcome {
	case billing.OutcomeSucceeded:
		if err := invoice.MarkPaid(now); err != nil {
			if errors.Is(err, billing.ErrInvoiceImmutable) {
				// Same invoice settled twice under different external
				// IDs; record and move on.
				return s.markConsumed(ctx, event, invoice.ID, sub.TenantID, true)
			}
			return nil, err
		}
		if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
			return nil, err
		}
		s.publish(ctx, invoice.GetDomainEvents()...)
		invoice.ClearDomainEvents()

		if err := sub.MarkPaid(now); err != nil {
			return nil, err
		}
		if err := s.subRepo.Save(ctx, sub); err != nil {
			return nil, err
		}
		s.publish(ctx, sub.GetDomainEvents()...)
		sub.ClearDomainEvents()

		if err := s.reactivateTenant(ctx, sub.TenantID); err != nil {
			return nil, err
		}
		return s.markConsumed(ctx, event, invoice.ID, sub.TenantID, true)

	case billing.OutcomeFailed, billing.OutcomeChargeback:
		// Record-only: a single gateway failure must not degrade the
		// subscription. Past-due and suspension transitions are the
		// period/grace sweeper's decision alone.
		return s.markConsumed(ctx, event, uuid.Nil, sub.TenantID, true)
	}

	return nil, shared.ErrInvalidInput
}

// match finds the invoice and subscription a callback refers to.
// Precedence: explicit invoice ID, then the tenant's newest open
// invoice.
func (s *PaymentIngestService) match(ctx context.Context, req CallbackRequest) (*billing.Invoice, *billing.Subscription, error) {
	if req.InvoiceID != nil {
		invoice, err := s.invoiceRepo.FindByID(ctx, *req.InvoiceID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, nil, billing.ErrUnmatchedBillingEvent
			}
			return nil, nil, err
		}
		sub, err := s.subRepo.FindByID(ctx, invoice.SubscriptionID)
		if err != nil {
			return nil, nil, err
		}
		return invoice, sub, nil
	}

	if req.TenantCode == "" {
		return nil, nil, billing.ErrUnmatchedBillingEvent
	}
	tenant, err := s.tenantRepo.FindByCode(ctx, req.TenantCode)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil, billing.ErrUnmatchedBillingEvent
		}
		return nil, nil, err
	}
	sub, err := s.subRepo.FindLiveByTenant(ctx, tenant.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil, billing.ErrUnmatchedBillingEvent
		}
		return nil, nil, err
	}
	invoice, err := s.invoiceRepo.FindOpenBySubscription(ctx, sub.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil, billing.ErrUnmatchedBillingEvent
		}
		return nil, nil, err
	}
	return invoice, sub, nil
}

// reactivateTenant lifts a billing suspension after payment recovery
func (s *PaymentIngestService) reactivateTenant(ctx context.Context, tenantID uuid.UUID) error {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if !tenant.IsSuspended() {
		return nil
	}
	if err := tenant.Activate(); err != nil {
		return err
	}
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return err
	}
	s.publish(ctx, tenant.GetDomainEvents()...)
	tenant.ClearDomainEvents()
	return nil
}

func (s *PaymentIngestService) markConsumed(ctx context.Context, event *billing.PaymentEvent, invoiceID, tenantID uuid.UUID, matched bool) (*CallbackResult, error) {
	if err := s.eventRepo.MarkProcessed(ctx, event.ID, invoiceID, tenantID); err != nil {
		return nil, err
	}
	return &CallbackResult{
		EventID:   event.ID,
		Matched:   matched,
		InvoiceID: invoiceID,
	}, nil
}

// duplicateResult reports an already-processed callback without
// reprocessing it.
func (s *PaymentIngestService) duplicateResult(ctx context.Context, provider, externalID string) (*CallbackResult, error) {
	existing, err := s.eventRepo.FindByDedupKey(ctx, provider, externalID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Fast path hit but the row is gone (cache outlived a
			// purge); treat as duplicate with no detail.
			return &CallbackResult{Duplicate: true}, nil
		}
		return nil, err
	}
	result := &CallbackResult{
		EventID:   existing.ID,
		Duplicate: true,
		Matched:   existing.Processed,
	}
	if existing.InvoiceRef != nil {
		result.InvoiceID = *existing.InvoiceRef
	}
	return result, nil
}

// ListUnprocessed returns stored callbacks that did not match an
// invoice, oldest first, for manual reconciliation.
func (s *PaymentIngestService) ListUnprocessed(ctx context.Context, offset, limit int) ([]*PaymentEventResponse, int64, error) {
	events, total, err := s.eventRepo.ListUnprocessed(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*PaymentEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, NewPaymentEventResponse(e))
	}
	return out, total, nil
}

func (s *PaymentIngestService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventBus == nil || len(events) == 0 {
		return
	}
	if err := s.eventBus.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish events", zap.Error(err))
	}
}
