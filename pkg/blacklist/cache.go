package blacklist

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/albertniderhofer/S3PolicyManager/metrics"
)

// Store loads a tenant's blocked CIDR ranges from durable storage.
type Store interface {
	ListCidrs(ctx context.Context, tenantID uuid.UUID) ([]string, error)
}

type cacheEntry struct {
	cidrs    []string
	loadedAt time.Time
}

// Cache is a read-through per-tenant CIDR cache. Entries are reused for
// the TTL; a failed reload logs, counts and caches an empty list so a
// backend outage degrades to "no blacklist" instead of blocking every
// subsequent event (fail-open, the blacklist is defense in depth, not the
// primary access control).
type Cache struct {
	store Store
	ttl   time.Duration
	log   *zap.Logger

	mu      sync.Mutex
	entries map[uuid.UUID]cacheEntry

	// now is swappable for tests.
	now func() time.Time
}

func NewCache(store Store, ttl time.Duration, log *zap.Logger) *Cache {
	return &Cache{
		store:   store,
		ttl:     ttl,
		log:     log,
		entries: make(map[uuid.UUID]cacheEntry),
		now:     time.Now,
	}
}

// GetCidrList returns the cached ranges for a tenant, reloading when the
// entry is older than the TTL.
func (c *Cache) GetCidrList(ctx context.Context, tenantID uuid.UUID) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[tenantID]; ok && c.now().Sub(entry.loadedAt) < c.ttl {
		return entry.cidrs
	}

	cidrs, err := c.store.ListCidrs(ctx, tenantID)
	if err != nil {
		c.log.Warn("CIDR blacklist reload failed, failing open",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
		metrics.BlacklistReloadFailuresTotal.Inc()
		cidrs = nil
	}
	c.entries[tenantID] = cacheEntry{cidrs: cidrs, loadedAt: c.now()}
	return cidrs
}

// IsBlacklisted reports whether ip matches any cached CIDR for the
// tenant.
func (c *Cache) IsBlacklisted(ctx context.Context, tenantID uuid.UUID, ip string) bool {
	for _, cidr := range c.GetCidrList(ctx, tenantID) {
		if IPInCIDR(ip, cidr) {
			return true
		}
	}
	return false
}
