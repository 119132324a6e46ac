package shared

import (
	"context"
	"errors"
	"time"
)

// ErrIdempotencyConflict indicates the key was already claimed for the module.
var ErrIdempotencyConflict = errors.New("idempotent request already processed")

// RequestKeys records client request keys per module so a retried mutation
// is applied at most once. The same key may be claimed by different modules.
type RequestKeys struct {
	db  Execer
	now func() time.Time
}

// NewRequestKeys binds the key store to a pool or transaction.
func NewRequestKeys(db Execer) *RequestKeys {
	return &RequestKeys{db: db, now: time.Now}
}

func checkRequestKey(module, key string) error {
	if module == "" {
		return errors.New("idempotency module required")
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	return nil
}

// Claim records key for module, returning ErrIdempotencyConflict when it already exists.
func (s *RequestKeys) Claim(ctx context.Context, module, key string) error {
	if s == nil || s.db == nil {
		return errors.New("idempotency store not initialised")
	}
	if err := checkRequestKey(module, key); err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `INSERT INTO idempotency_keys (module, key, created_at) VALUES ($1, $2, $3)
ON CONFLICT (module, key) DO NOTHING`, module, key, s.now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrIdempotencyConflict
	}
	return nil
}

// Release drops a claim after failed processing so the client may retry.
func (s *RequestKeys) Release(ctx context.Context, module, key string) error {
	if s == nil || s.db == nil {
		return nil
	}
	if err := checkRequestKey(module, key); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE module = $1 AND key = $2`, module, key)
	return err
}

// Purge deletes claims older than retention and reports how many were removed.
func (s *RequestKeys) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	if retention <= 0 {
		return 0, errors.New("idempotency retention must be positive")
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, s.now().Add(-retention))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
