package store

import (
	"time"

	"github.com/rs/zerolog"
)

// Store-enforced request limits. These mirror the service's documented
// per-request caps and are not configurable.
const (
	// maxBatchGetItems is the item cap for one BatchGetItem request.
	maxBatchGetItems = 100

	// maxBatchWriteItems is the item cap for one BatchWriteItem request.
	maxBatchWriteItems = 25

	// maxBatchBytes is the request payload ceiling.
	maxBatchBytes = 16 * 1024 * 1024
)

// Config holds configuration for the Store.
type Config struct {
	// MaxBatchRetries bounds resubmission of unprocessed batch items.
	// Exceeding it fails the batch with a BatchError.
	// Default: 4
	MaxBatchRetries int

	// BatchBackoffBase is the delay before the first resubmission. Each
	// further resubmission doubles the delay up to BatchBackoffCap.
	// Default: 50ms
	BatchBackoffBase time.Duration

	// BatchBackoffCap bounds the resubmission delay.
	// Default: 1s
	BatchBackoffCap time.Duration

	// Logger receives batch retry and scan cost diagnostics.
	// Default: a no-op logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	nop := zerolog.Nop()
	return Config{
		MaxBatchRetries:  4,
		BatchBackoffBase: 50 * time.Millisecond,
		BatchBackoffCap:  time.Second,
		Logger:           &nop,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.MaxBatchRetries < 1 {
		c.MaxBatchRetries = 4
	}
	if c.BatchBackoffBase <= 0 {
		c.BatchBackoffBase = 50 * time.Millisecond
	}
	if c.BatchBackoffCap < c.BatchBackoffBase {
		c.BatchBackoffCap = time.Second
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
}
