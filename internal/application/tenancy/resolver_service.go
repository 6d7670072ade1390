package tenancy

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/gridpos/backend/internal/domain/shared"
	"github.com/gridpos/backend/internal/domain/tenancy"
	"github.com/gridpos/backend/internal/infrastructure/config"
)

// Resolution is the outcome of mapping a request to a tenant context
type Resolution struct {
	TenantID   uuid.UUID
	TenantCode string
	SchemaName string
	Status     tenancy.TenantStatus
	// Shared is true for requests served from the shared partition
	// (the platform admin surface), where no tenant schema applies.
	Shared bool
}

// ResolverService maps an incoming hostname (or an explicit admin
// override) to the tenant schema the request must execute against.
// Resolution fails closed: any ambiguity, timeout or lookup failure
// denies the request rather than defaulting to a schema.
type ResolverService struct {
	registry   tenancy.SchemaRegistry
	tenantRepo tenancy.TenantRepository
	cfg        config.TenancyConfig
	reserved   map[string]struct{}
}

// NewResolverService creates a new ResolverService
func NewResolverService(registry tenancy.SchemaRegistry, tenantRepo tenancy.TenantRepository, cfg config.TenancyConfig) *ResolverService {
	reserved := make(map[string]struct{}, len(cfg.ReservedSubdomains))
	for _, s := range cfg.ReservedSubdomains {
		reserved[strings.ToLower(s)] = struct{}{}
	}
	return &ResolverService{
		registry:   registry,
		tenantRepo: tenantRepo,
		cfg:        cfg,
		reserved:   reserved,
	}
}

// Resolve maps a request host to a tenant. A non-empty overrideCode is
// only honored for platform-admin callers and takes precedence over
// the host.
func (s *ResolverService) Resolve(ctx context.Context, host, overrideCode string, platformAdmin bool) (*Resolution, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ResolveTimeout)
	defer cancel()

	if overrideCode != "" {
		if !platformAdmin {
			return nil, shared.ErrForbidden
		}
		tenant, err := s.tenantRepo.FindByCode(ctx, overrideCode)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, tenancy.ErrUnknownTenant
			}
			return nil, err
		}
		return s.resolutionFor(ctx, tenant)
	}

	hostname := normalizeHost(host)
	if hostname == "" {
		return nil, tenancy.ErrUnknownTenant
	}

	// The admin host and the bare platform apex serve the shared
	// partition, never a tenant schema.
	if hostname == strings.ToLower(s.cfg.AdminHost) || hostname == strings.ToLower(s.cfg.BaseDomain) {
		return &Resolution{Shared: true}, nil
	}

	if sub, ok := s.subdomainOf(hostname); ok {
		if _, isReserved := s.reserved[sub]; isReserved {
			return nil, tenancy.ErrUnknownTenant
		}
	}

	binding, err := s.registry.ResolveByDomain(ctx, hostname)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, shared.NewDomainError("RESOLUTION_TIMEOUT", "Tenant resolution timed out")
		}
		return nil, err
	}

	tenant, err := s.tenantRepo.FindByID(ctx, binding.TenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Binding without a tenant row: registry inconsistency,
			// deny rather than guess.
			return nil, tenancy.ErrUnknownTenant
		}
		return nil, err
	}

	return s.resolutionFor(ctx, tenant)
}

// resolutionFor validates the tenant lifecycle state and produces the
// execution context. Suspended tenants still resolve so billing
// recovery endpoints stay reachable; entitlement checks deny the rest.
func (s *ResolverService) resolutionFor(ctx context.Context, tenant *tenancy.Tenant) (*Resolution, error) {
	switch tenant.Status {
	case tenancy.TenantStatusArchived:
		return nil, tenancy.ErrTenantArchived
	case tenancy.TenantStatusProvisioning:
		return nil, tenancy.ErrProvisioningInProgress
	}

	if err := tenancy.ValidateSchemaName(tenant.SchemaName); err != nil {
		return nil, err
	}

	return &Resolution{
		TenantID:   tenant.ID,
		TenantCode: tenant.Code,
		SchemaName: tenant.SchemaName,
		Status:     tenant.Status,
	}, nil
}

// subdomainOf extracts the subdomain key when the host is directly
// under the platform base domain.
func (s *ResolverService) subdomainOf(hostname string) (string, bool) {
	base := strings.ToLower(s.cfg.BaseDomain)
	if base == "" || !strings.HasSuffix(hostname, "."+base) {
		return "", false
	}
	sub := strings.TrimSuffix(hostname, "."+base)
	if sub == "" || strings.Contains(sub, ".") {
		return "", false
	}
	return sub, true
}

func normalizeHost(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	if h == "" {
		return ""
	}
	if stripped, _, err := net.SplitHostPort(h); err == nil {
		h = stripped
	}
	return strings.TrimSuffix(h, ".")
}
