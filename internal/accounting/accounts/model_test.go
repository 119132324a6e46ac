package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-books/internal/access"
	ledgererr "github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
)

func sampleChart() *Chart {
	return NewChart(1, 10, []Account{
		{ID: 3, Code: CodeReceivables, Name: "Receivables", Type: AccountTypeAsset, IsActive: true},
		{ID: 1, Code: CodeCash, Name: "Cash", Type: AccountTypeAsset, IsActive: true},
		{ID: 9, Code: "999", Name: "Retired", Type: AccountTypeExpense, IsActive: false},
		{ID: 5, Code: CodeVATSales, Name: "VAT", Type: AccountTypeLiability, IsActive: true},
	})
}

func TestChartIndexes(t *testing.T) {
	chart := sampleChart()
	require.Equal(t, 3, chart.Len())

	a, ok := chart.ByCode(CodeReceivables)
	require.True(t, ok)
	require.Equal(t, int64(3), a.ID)

	_, ok = chart.ByID(9)
	require.False(t, ok, "inactive accounts are not part of the chart")
	require.Zero(t, chart.IDByCode(CodePayables))

	first, ok := chart.First()
	require.True(t, ok)
	require.Equal(t, CodeCash, first.Code)
	require.Equal(t, []string{"101", "135", "440"}, []string{chart.Accounts()[0].Code, chart.Accounts()[1].Code, chart.Accounts()[2].Code})
}

func TestNilChartIsEmpty(t *testing.T) {
	var chart *Chart
	_, ok := chart.First()
	require.False(t, ok)
	require.False(t, chart.Has(1))
	require.Nil(t, chart.Accounts())
}

type stubReader struct {
	chart *Chart
}

func (s stubReader) ActiveChart(context.Context, int64) (*Chart, bool, error) {
	return s.chart, s.chart != nil, nil
}

type stubAuthorizer struct {
	err error
}

func (a stubAuthorizer) Authorize(_ context.Context, req access.Request) (access.Grant, error) {
	if a.err != nil {
		return access.Grant{}, a.err
	}
	return access.Grant{ActorID: req.UserID, Permission: req.Permission}, nil
}

func TestServiceListRequiresChart(t *testing.T) {
	in := ListInput{TenantID: 1, CompanyID: 10, UserID: 7}
	_, err := NewService(stubReader{}, stubAuthorizer{}).List(context.Background(), in)
	require.ErrorIs(t, err, ledgererr.ErrNomenclaturaRequired)

	list, err := NewService(stubReader{chart: sampleChart()}, stubAuthorizer{}).List(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, list, 3)
}

func TestServiceListAuthorizesFirst(t *testing.T) {
	denied := ledgererr.Forbidden("permission denied")
	_, err := NewService(stubReader{chart: sampleChart()}, stubAuthorizer{err: denied}).List(context.Background(), ListInput{TenantID: 1, CompanyID: 10, UserID: 7})
	require.Equal(t, ledgererr.KindForbidden, ledgererr.KindOf(err))

	_, err = NewService(stubReader{chart: sampleChart()}, nil).List(context.Background(), ListInput{})
	require.Equal(t, ledgererr.KindInternal, ledgererr.KindOf(err))
}
