package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type scriptedExecer struct {
	tags  []string
	err   error
	calls []capturedExec
}

type capturedExec struct {
	sql  string
	args []any
}

func (s *scriptedExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.calls = append(s.calls, capturedExec{sql: sql, args: args})
	if s.err != nil {
		return pgconn.CommandTag{}, s.err
	}
	tag := s.tags[0]
	s.tags = s.tags[1:]
	return pgconn.NewCommandTag(tag), nil
}

func fixedKeys(ex *scriptedExecer) *RequestKeys {
	keys := NewRequestKeys(ex)
	keys.now = func() time.Time { return time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC) }
	return keys
}

func TestClaimDetectsRepeatedKey(t *testing.T) {
	ex := &scriptedExecer{tags: []string{"INSERT 0 1", "INSERT 0 0"}}
	keys := fixedKeys(ex)

	require.NoError(t, keys.Claim(context.Background(), "treasury", "1:10:abc"))
	require.ErrorIs(t, keys.Claim(context.Background(), "treasury", "1:10:abc"), ErrIdempotencyConflict)
	require.Equal(t, []any{"treasury", "1:10:abc", time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)}, ex.calls[0].args)
}

func TestReleaseIsScopedToModule(t *testing.T) {
	ex := &scriptedExecer{tags: []string{"DELETE 1"}}
	keys := fixedKeys(ex)

	require.NoError(t, keys.Release(context.Background(), "treasury", "1:10:abc"))
	require.Contains(t, ex.calls[0].sql, "module = $1 AND key = $2")
	require.Equal(t, []any{"treasury", "1:10:abc"}, ex.calls[0].args)
}

func TestRequestKeysRejectBlankInput(t *testing.T) {
	keys := fixedKeys(&scriptedExecer{})
	require.Error(t, keys.Claim(context.Background(), "", "k"))
	require.Error(t, keys.Claim(context.Background(), "treasury", ""))
	require.Error(t, keys.Release(context.Background(), "treasury", ""))
}

func TestPurgeReportsRemovedRows(t *testing.T) {
	ex := &scriptedExecer{tags: []string{"DELETE 3"}}
	keys := fixedKeys(ex)

	n, err := keys.Purge(context.Background(), 48*time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
	require.Equal(t, []any{time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC)}, ex.calls[0].args)

	_, err = keys.Purge(context.Background(), 0)
	require.Error(t, err)

	ex.err = errors.New("db down")
	_, err = keys.Purge(context.Background(), time.Hour)
	require.EqualError(t, err, "db down")
}
