package cache

import (
	"github.com/google/uuid"

	"github.com/malikhaddad/gatewatch-backend/pkg/redis"
)

// Key vocabulary for cached plate reads. Every cached list lives under one of
// two prefixes so invalidation can stay coarse: per-owner lists under
// plates:owner:<id>, cross-user aggregates (pending review queue, status
// breakdowns) under plates:agg.

// OwnerPlatesKey names one cached page of a single owner's plate list.
// variant encodes limit, cursor, and filters so distinct pages do not collide.
func OwnerPlatesKey(userID uuid.UUID, variant string) string {
	return redis.Key("plates", "owner", userID.String(), variant)
}

// OwnerPlatesPattern matches every cached page for one owner.
func OwnerPlatesPattern(userID uuid.UUID) string {
	return redis.Key("plates", "owner", userID.String(), "*")
}

// AggregateKey names one cached page of a cross-user listing.
func AggregateKey(name, variant string) string {
	return redis.Key("plates", "agg", name, variant)
}

// AggregatesPattern matches every cached aggregate page.
func AggregatesPattern() string {
	return redis.Key("plates", "agg", "*")
}

// AllPlatesPattern matches every cached plate read regardless of scope.
func AllPlatesPattern() string {
	return redis.Key("plates", "*")
}
