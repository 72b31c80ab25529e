package redisx

import "time"

const (
	// Idempotency create order: idem:order:create:{tenant}:{external_id} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s:%s"

	// Cache status order: order_status:{tenant}:{order_id} -> {"status": "..."}
	KeyOrderStatus = "order_status:%s:%s"

	// Cache menu per tenant (+ category, "" = semua): menu:{tenant}:{category}
	KeyMenu = "menu:%s:%s"

	// Dedup event processing: dedup:{service}:{id} (id = event_id)
	KeyDedup = "dedup:%s:%s"

	// Offline queue di terminal POS: hash per order + zset pending (score = created_at)
	KeyOfflineOrder   = "pos:%s:offline:order:%s"
	KeyOfflinePending = "pos:%s:offline:pending"
	KeyOfflineAll     = "pos:%s:offline:all"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLMenuCache   = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
