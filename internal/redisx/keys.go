package redisx

import "time"

const (
	// Cart per user: cart:{user_id} -> JSON []CartLine
	KeyCart = "cart:%s"

	// Idempotent checkout: idem:order:create:{user_id}:{idempotency_key} -> order_id | "pending"
	KeyIdemOrderCreate = "idem:order:create:%s:%s"

	// Per-user checkout claim: lock:checkout:{user_id} -> random token
	KeyCheckoutLock = "lock:checkout:%s"

	// Cached order list: orders:user:{user_id}:{generation} -> JSON []Order
	KeyUserOrders = "orders:user:%s:%d"
	// Generation counter bumped on every write: orders:user:gen:{user_id}
	KeyUserOrdersGen = "orders:user:gen:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Sales projection hashes, field = product_id
	KeyStatsUnits   = "stats:units"
	KeyStatsRevenue = "stats:revenue"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLPending     = 30 * time.Second
	TTLDedup       = 48 * time.Hour
	// outlives any checkout bounded by the HTTP timeout
	TTLCheckoutLock = 30 * time.Second
)
