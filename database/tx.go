package database

import (
	"context"
	"database/sql"
	"time"

	config "github.com/anjiri1684/training_academy/configs"
	"github.com/anjiri1684/training_academy/metrics"
	"github.com/avast/retry-go/v4"
	"gorm.io/gorm"
)

type TxPolicy struct {
	Isolation sql.IsolationLevel
	Attempts  uint
	Delay     time.Duration
	MaxDelay  time.Duration
}

// SerializablePolicy is the policy for transactions that enforce seat capacity.
func SerializablePolicy(cfg config.RetryConfig) TxPolicy {
	return TxPolicy{
		Isolation: sql.LevelSerializable,
		Attempts:  cfg.Attempts,
		Delay:     cfg.Delay,
		MaxDelay:  cfg.MaxDelay,
	}
}

func DefaultPolicy() TxPolicy {
	return TxPolicy{
		Isolation: sql.LevelSerializable,
		Attempts:  5,
		Delay:     20 * time.Millisecond,
		MaxDelay:  500 * time.Millisecond,
	}
}

// RunInTx runs fn in a transaction, retrying the whole closure when the
// database reports a serialization conflict. Other errors are returned as-is.
func RunInTx(ctx context.Context, db *gorm.DB, p TxPolicy, fn func(tx *gorm.DB) error) error {
	attempts := p.Attempts
	if attempts == 0 {
		attempts = 1
	}

	opts := &sql.TxOptions{Isolation: p.Isolation}
	return retry.Do(
		func() error {
			return db.WithContext(ctx).Transaction(fn, opts)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(p.Delay),
		retry.MaxDelay(p.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(IsRetryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			metrics.TxRetries.Inc()
		}),
	)
}
