package cache

import (
	"context"

	"github.com/google/uuid"

	"github.com/malikhaddad/gatewatch-backend/pkg/logger"
)

// Invalidator drops cached plate reads after a mutation. Invalidation is
// fire-and-forget: a failed delete means stale reads until TTL expiry, which
// the read path tolerates, so errors are logged and swallowed.
type Invalidator struct {
	redis redisCommands
	logg  *logger.Logger
}

// NewInvalidator builds an invalidator over the shared Redis client.
func NewInvalidator(redisClient redisCommands, logg *logger.Logger) *Invalidator {
	return &Invalidator{redis: redisClient, logg: logg}
}

// OwnerPlates drops every cached page for one owner.
func (i *Invalidator) OwnerPlates(ctx context.Context, userID uuid.UUID) {
	i.drop(ctx, OwnerPlatesPattern(userID))
}

// Aggregates drops every cached cross-user listing.
func (i *Invalidator) Aggregates(ctx context.Context) {
	i.drop(ctx, AggregatesPattern())
}

// All drops every cached plate read. Used after sweeps, where the affected
// owners are not enumerated.
func (i *Invalidator) All(ctx context.Context) {
	i.drop(ctx, AllPlatesPattern())
}

func (i *Invalidator) drop(ctx context.Context, pattern string) {
	if i == nil || i.redis == nil {
		return
	}
	if _, err := i.redis.DelPattern(ctx, pattern); err != nil && i.logg != nil {
		fields := map[string]any{"pattern": pattern, "error": err.Error()}
		i.logg.Warn(i.logg.WithFields(ctx, fields), "cache invalidation failed")
	}
}
