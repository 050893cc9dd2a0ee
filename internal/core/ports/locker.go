package ports

import "context"

// TenantLocker serializes engine runs per tenant at the operational
// surface. The engine itself holds no locks; this lease is what provides
// the single-writer discipline it assumes.
type TenantLocker interface {
	// Acquire takes the per-tenant lease and returns a release function.
	// When the lease is already held it returns domain.ErrTenantLocked.
	Acquire(ctx context.Context, tenantID string) (release func(), err error)
}
