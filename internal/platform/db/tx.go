package db

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres error codes that mark a transaction as safe to replay.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
)

// DefaultMaxAttempts bounds WithTx replays when no explicit limit is configured.
const DefaultMaxAttempts = 5

// SequenceConstraint is the unique index guarding per-company ledger numbering.
const SequenceConstraint = "uq_ledger_entries_company_correlativo"

// TxOptions tunes WithTxRetry.
type TxOptions struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// WithTx executes a function within a transaction using the RepeatableRead isolation level.
// fn may run more than once; it must not leak state between attempts.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	return WithTxRetry(ctx, pool, TxOptions{}, fn)
}

// WithTxRetry is WithTx with explicit retry tuning.
func WithTxRetry(ctx context.Context, pool *pgxpool.Pool, opts TxOptions, fn func(pgx.Tx) error) error {
	if pool == nil {
		return errors.New("platform/db: pool not initialised")
	}
	return Retry(ctx, opts, func() error {
		return runTx(ctx, pool, fn)
	})
}

// Retry runs attempt until it succeeds, fails with an error IsRetryable rejects,
// or opts.MaxAttempts runs out. Waits between attempts follow Backoff with jitter.
func Retry(ctx context.Context, opts TxOptions, attempt func() error) error {
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	delay := opts.BaseDelay
	if delay <= 0 {
		delay = 10 * time.Millisecond
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = attempt()
		if err == nil || !IsRetryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(Jitter(Backoff(delay, i))):
		}
	}
	return fmt.Errorf("platform/db: giving up after %d attempts: %w", attempts, err)
}

func runTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}

// IsRetryable reports whether err came from a conflict that a fresh transaction may resolve.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected:
		return true
	case codeUniqueViolation:
		return IsUniqueViolation(err, SequenceConstraint)
	}
	return false
}

// IsUniqueViolation reports whether err is a unique violation on the named constraint.
// An empty constraint matches any unique violation.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// Jitter picks a wait in [d/2, d] so replaying transactions spread out.
func Jitter(d time.Duration) time.Duration {
	if d < 2 {
		return d
	}
	half := d / 2
	return half + rand.N(half+1)
}

// Backoff doubles base per attempt, capped at one second.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 10 {
		attempt = 10
	}
	d := base << attempt
	if d > time.Second {
		return time.Second
	}
	return d
}
