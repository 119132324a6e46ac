package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorMatchesByCode(t *testing.T) {
	err := fmt.Errorf("post: %w", Conflict(CodePeriodClosed, "closed").With("month", 6))
	require.ErrorIs(t, err, ErrPeriodClosed)
	require.NotErrorIs(t, err, ErrDocumentAlreadyPosted)

	e, ok := As(err)
	require.True(t, ok)
	require.Equal(t, KindConflict, e.Kind)
	require.Equal(t, 6, e.Context["month"])
}

func TestErrorStringIsDeterministic(t *testing.T) {
	e := NotFound(CodeDocumentsNotFound, "documents not found").With("keys", []string{"A"}).With("company_id", int64(3))
	require.Equal(t, "DOCUMENTS_NOT_FOUND: documents not found (company_id=3, keys=[A])", e.Error())
}

func TestWithDoesNotMutateSentinel(t *testing.T) {
	_ = ErrPeriodClosed.With("year", 2025)
	require.Empty(t, ErrPeriodClosed.Context)
}

func TestInternalUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal(cause)
	require.ErrorIs(t, err, cause)
	require.Equal(t, CodeInternal, CodeOf(err))
	require.Equal(t, KindInternal, KindOf(errors.New("x")))
	require.Equal(t, CodeInternal, CodeOf(errors.New("x")))
	require.Equal(t, "", CodeOf(nil))
}
