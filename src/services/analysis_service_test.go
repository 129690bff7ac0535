package services

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/loanlens/backend/src/logger"
	"github.com/username/loanlens/backend/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

const (
	ordersCSV = "order_id,principal,origination_date,borrower_id\n" +
		"O1,1000,2023-12-01,B1\n"
	planCSV = "order_id,installment_index,due_date,due_amount\n" +
		"O1,1,2024-01-01,100\n" +
		"O1,2,2024-02-01,100\n"
	paymentsCSV = "order_id,paid_date,paid_amount\n" +
		"O1,2024-01-03,100\n"
)

func newTestService() AnalysisService {
	sessions := NewSessionStore(time.Hour, time.Hour)
	return NewAnalysisService(sessions, cache.New(time.Minute, time.Minute))
}

func uploadAll(t *testing.T, svc AnalysisService, sessionID string) {
	t.Helper()
	for kind, content := range map[string]string{
		models.DatasetOrders:   ordersCSV,
		models.DatasetPlan:     planCSV,
		models.DatasetPayments: paymentsCSV,
	} {
		_, err := svc.ProcessUpload(sessionID, kind, strings.NewReader(content))
		require.NoError(t, err, "uploading %s", kind)
	}
}

func TestProcessUploadReportsReadiness(t *testing.T) {
	svc := newTestService()
	sessionID := svc.CreateSession()

	outcome, err := svc.ProcessUpload(sessionID, models.DatasetOrders, strings.NewReader(ordersCSV))
	require.NoError(t, err)
	assert.False(t, outcome.DatasetReady)
	assert.Equal(t, 1, outcome.Report.RowsLoaded)

	_, err = svc.ProcessUpload(sessionID, models.DatasetPlan, strings.NewReader(planCSV))
	require.NoError(t, err)

	outcome, err = svc.ProcessUpload(sessionID, models.DatasetPayments, strings.NewReader(paymentsCSV))
	require.NoError(t, err)
	assert.True(t, outcome.DatasetReady)
}

func TestProcessUploadErrors(t *testing.T) {
	svc := newTestService()
	sessionID := svc.CreateSession()

	_, err := svc.ProcessUpload("no-such-session", models.DatasetOrders, strings.NewReader(ordersCSV))
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.ProcessUpload(sessionID, "invoices", strings.NewReader(ordersCSV))
	assert.ErrorIs(t, err, ErrUnknownDatasetKind)

	// Missing required column surfaces as a parsing failure.
	_, err = svc.ProcessUpload(sessionID, models.DatasetOrders, strings.NewReader("order_id,borrower_id\nO1,B1\n"))
	assert.ErrorIs(t, err, ErrParsingFailed)
}

func TestReconcileRequiresCompleteDataset(t *testing.T) {
	svc := newTestService()
	sessionID := svc.CreateSession()

	_, err := svc.Reconcile(sessionID, AnalysisOptions{})
	assert.ErrorIs(t, err, ErrDatasetIncomplete)

	_, err = svc.Reconcile("no-such-session", AnalysisOptions{})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestReconcileEndToEnd(t *testing.T) {
	svc := newTestService()
	sessionID := svc.CreateSession()
	uploadAll(t, svc, sessionID)

	opts := AnalysisOptions{}
	opts.Reconciler.GracePeriodDays = 5

	result, err := svc.Reconcile(sessionID, opts)
	require.NoError(t, err)
	require.Len(t, result.Installments, 2)
	assert.Equal(t, models.StatusPaid, result.Installments[0].Status)
	assert.Equal(t, 5, result.GracePeriodDays)
}

func TestReconcileCacheInvalidatedByReupload(t *testing.T) {
	svc := newTestService()
	sessionID := svc.CreateSession()
	uploadAll(t, svc, sessionID)

	first, err := svc.Reconcile(sessionID, AnalysisOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, first.Installments[1].Status)

	// Second payment file covers installment 2 as well.
	_, err = svc.ProcessUpload(sessionID, models.DatasetPayments, strings.NewReader(
		"order_id,paid_date,paid_amount\nO1,2024-01-03,100\nO1,2024-02-01,100\n"))
	require.NoError(t, err)

	second, err := svc.Reconcile(sessionID, AnalysisOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, second.Installments[1].Status)
}

func TestReconcileAppliesFilterWithoutMutatingCache(t *testing.T) {
	svc := newTestService()
	sessionID := svc.CreateSession()
	uploadAll(t, svc, sessionID)

	opts := AnalysisOptions{}
	opts.Filter.From = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	filtered, err := svc.Reconcile(sessionID, opts)
	require.NoError(t, err)
	require.Len(t, filtered.Installments, 1)
	assert.Equal(t, 2, filtered.Installments[0].InstallmentIndex)

	full, err := svc.Reconcile(sessionID, AnalysisOptions{})
	require.NoError(t, err)
	assert.Len(t, full.Installments, 2)
}

func TestTrendsAndSummary(t *testing.T) {
	svc := newTestService()
	sessionID := svc.CreateSession()
	uploadAll(t, svc, sessionID)

	records, err := svc.Trends(sessionID, AnalysisOptions{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2024-01", records[0].Period)
	assert.Equal(t, "2024-02", records[1].Period)

	summary, err := svc.Summary(sessionID, AnalysisOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalLoans)
	assert.Equal(t, 2, summary.TotalInstallments)

	opts := AnalysisOptions{}
	opts.Trend.Period = "decade"
	_, err = svc.Trends(sessionID, opts)
	require.Error(t, err)
}

func TestExportFormatsAndTables(t *testing.T) {
	svc := newTestService()
	sessionID := svc.CreateSession()
	uploadAll(t, svc, sessionID)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(&buf, sessionID, TableReconciliation, FormatCSV, AnalysisOptions{}))
	assert.True(t, strings.HasPrefix(buf.String(), "order_id,"))

	buf.Reset()
	require.NoError(t, svc.Export(&buf, sessionID, TableTrends, FormatCSV, AnalysisOptions{}))
	assert.True(t, strings.HasPrefix(buf.String(), "period,"))

	buf.Reset()
	require.NoError(t, svc.Export(&buf, sessionID, TableReconciliation, FormatXLSX, AnalysisOptions{}))
	// xlsx payloads are zip archives.
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("PK")))

	assert.ErrorIs(t, svc.Export(&buf, sessionID, "ledger", FormatCSV, AnalysisOptions{}), ErrUnknownTable)
	assert.ErrorIs(t, svc.Export(&buf, sessionID, TableReconciliation, "pdf", AnalysisOptions{}), ErrUnknownFormat)
}

func TestClearSessionDropsDataset(t *testing.T) {
	svc := newTestService()
	sessionID := svc.CreateSession()
	uploadAll(t, svc, sessionID)

	svc.ClearSession(sessionID)

	_, err := svc.Reconcile(sessionID, AnalysisOptions{})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestReconcileResultSortedByOrderAndIndex(t *testing.T) {
	svc := newTestService()
	sessionID := svc.CreateSession()

	orders := "order_id,principal,origination_date,borrower_id\n" +
		"O2,500,2023-12-01,B2\nO1,1000,2023-12-01,B1\n"
	plan := "order_id,installment_index,due_date,due_amount\n" +
		"O2,1,2024-01-01,50\nO1,2,2024-02-01,100\nO1,1,2024-01-01,100\n"

	_, err := svc.ProcessUpload(sessionID, models.DatasetOrders, strings.NewReader(orders))
	require.NoError(t, err)
	_, err = svc.ProcessUpload(sessionID, models.DatasetPlan, strings.NewReader(plan))
	require.NoError(t, err)
	_, err = svc.ProcessUpload(sessionID, models.DatasetPayments, strings.NewReader(paymentsCSV))
	require.NoError(t, err)

	result, err := svc.Reconcile(sessionID, AnalysisOptions{})
	require.NoError(t, err)
	require.Len(t, result.Installments, 3)

	var keys []string
	for _, inst := range result.Installments {
		keys = append(keys, inst.OrderID)
	}
	assert.Equal(t, []string{"O1", "O1", "O2"}, keys)
	assert.Equal(t, 1, result.Installments[0].InstallmentIndex)
	assert.Equal(t, 2, result.Installments[1].InstallmentIndex)
}
