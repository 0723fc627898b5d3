package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction.
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultSnapshotTTL is how long reconstructed snapshots stay cached.
	DefaultSnapshotTTL = 5 * time.Minute

	// IdempotencyKeyTTL is how long idempotency keys are cached.
	IdempotencyKeyTTL = 24 * time.Hour
)

// IdempotencyInFlight is the placeholder an IdempotencyStore holds for a key
// whose first request has not finished yet.
var IdempotencyInFlight = []byte("processing")
