package services

import (
	"errors"
	"io"

	"github.com/username/loanlens/backend/src/models"
	"github.com/username/loanlens/backend/src/processors"
)

// Sentinel errors for the handler layer to map onto HTTP statuses.
var (
	ErrParsingFailed      = errors.New("parsing failed")
	ErrSessionNotFound    = errors.New("session not found")
	ErrDatasetIncomplete  = errors.New("dataset incomplete: upload orders, plan and payments first")
	ErrUnknownDatasetKind = errors.New("unknown dataset kind")
	ErrUnknownTable       = errors.New("unknown export table")
	ErrUnknownFormat      = errors.New("unknown export format")
)

// Export tables and formats accepted by Export.
const (
	TableReconciliation = "reconciliation"
	TableTrends         = "trends"

	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// AnalysisOptions bundles the per-request settings the UI controls:
// evaluation date and grace period, result filters, and trend bucketing.
type AnalysisOptions struct {
	Reconciler processors.ReconcilerConfig
	Filter     processors.FilterOptions
	Trend      processors.TrendOptions
}

// UploadOutcome reports one accepted file: its load report and whether
// the session now holds all three tables.
type UploadOutcome struct {
	Report       models.LoadReport `json:"report"`
	DatasetReady bool              `json:"dataset_ready"`
}

// AnalysisService is the session-scoped orchestration behind the
// dashboard: uploads in, derived tables out. Every analysis call
// recomputes (or serves a cached copy of) the full result from the
// session's currently loaded tables.
type AnalysisService interface {
	CreateSession() string
	ClearSession(sessionID string)

	ProcessUpload(sessionID, kind string, file io.Reader) (*UploadOutcome, error)

	Reconcile(sessionID string, opts AnalysisOptions) (*processors.ReconciliationResult, error)
	Trends(sessionID string, opts AnalysisOptions) ([]models.DelinquencyRecord, error)
	Summary(sessionID string, opts AnalysisOptions) (*models.AnalysisSummary, error)

	Export(w io.Writer, sessionID, table, format string, opts AnalysisOptions) error
}
