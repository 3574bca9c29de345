package types

import "time"

// IdempotencyRecord tracks at-most-once mutation per scope key:
// "actor_type:actor_id|operation_id|idempotency_key".
type IdempotencyRecord struct {
	Scope       string    `json:"scope"`
	PayloadHash string    `json:"payload_hash"`
	Response    []byte    `json:"response"`
	CreatedAt   time.Time `json:"created_at"`
}
