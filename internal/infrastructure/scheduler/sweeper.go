package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gridpos/backend/internal/domain/tenancy"
	"github.com/gridpos/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// SubscriptionEvaluator applies time-based subscription transitions.
// Implemented by the billing lifecycle service.
type SubscriptionEvaluator interface {
	EvaluateDue(ctx context.Context, now time.Time, batchSize int) (int, error)
}

// Provisioner retries stuck provisioning runs and purges expired
// schemas. Implemented by the tenancy provisioning service.
type Provisioner interface {
	Provision(ctx context.Context, tenantID uuid.UUID) error
	PurgeExpired(ctx context.Context) (int, error)
}

// Sweeper periodically drives every deadline-based behavior in the
// system: subscription lifecycle evaluation, provisioning retries and
// the schema retention reaper. One sweep loop keeps the ordering
// deterministic; all steps are idempotent so overlapping deployments
// double-sweeping is harmless.
type Sweeper struct {
	evaluator   SubscriptionEvaluator
	provisioner Provisioner
	tenantRepo  tenancy.TenantRepository
	cfg         config.SchedulerConfig
	provCfg     config.ProvisioningConfig
	logger      *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSweeper creates a new Sweeper
func NewSweeper(
	evaluator SubscriptionEvaluator,
	provisioner Provisioner,
	tenantRepo tenancy.TenantRepository,
	cfg config.SchedulerConfig,
	provCfg config.ProvisioningConfig,
	logger *zap.Logger,
) *Sweeper {
	return &Sweeper{
		evaluator:   evaluator,
		provisioner: provisioner,
		tenantRepo:  tenantRepo,
		cfg:         cfg,
		provCfg:     provCfg,
		logger:      logger,
	}
}

// Start begins the sweep loop
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("lifecycle sweeper started",
		zap.Duration("interval", s.cfg.SweepInterval),
		zap.Int("batch_size", s.cfg.BatchSize),
	)
	return nil
}

// Stop gracefully stops the sweep loop
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("lifecycle sweeper stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("lifecycle sweeper stop timed out")
		return ctx.Err()
	}
}

func (s *Sweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass of every periodic duty. Exported so tests and
// operational tooling can trigger a pass directly.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := time.Now()

	if changed, err := s.evaluator.EvaluateDue(ctx, now, s.cfg.BatchSize); err != nil {
		s.logger.Error("subscription sweep failed", zap.Error(err))
	} else if changed > 0 {
		s.logger.Info("subscription sweep applied transitions", zap.Int("count", changed))
	}

	s.retryProvisioning(ctx, now)

	if purged, err := s.provisioner.PurgeExpired(ctx); err != nil {
		s.logger.Error("schema reaper failed", zap.Error(err))
	} else if purged > 0 {
		s.logger.Info("schema reaper purged expired schemas", zap.Int("count", purged))
	}
}

// retryProvisioning re-runs provisioning for tenants stuck in
// provisioning status, respecting the backoff and attempt cap.
func (s *Sweeper) retryProvisioning(ctx context.Context, now time.Time) {
	tenants, _, err := s.tenantRepo.List(ctx, tenancy.TenantStatusProvisioning, 0, s.cfg.BatchSize)
	if err != nil {
		s.logger.Error("failed to list provisioning tenants", zap.Error(err))
		return
	}

	for _, tenant := range tenants {
		if tenant.ProvisioningExhausted(s.provCfg.MaxRetries) {
			continue
		}
		// Backoff: skip tenants touched too recently.
		if now.Sub(tenant.UpdatedAt) < s.provCfg.RetryBackoff {
			continue
		}
		if err := s.provisioner.Provision(ctx, tenant.ID); err != nil {
			s.logger.Warn("provisioning retry failed",
				zap.String("tenant_id", tenant.ID.String()),
				zap.Int("attempts", tenant.ProvisionAttempts),
				zap.Error(err),
			)
		}
	}
}
