package services

import (
	"fmt"
	"io"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/loanlens/backend/src/exporters"
	"github.com/username/loanlens/backend/src/logger"
	"github.com/username/loanlens/backend/src/models"
	"github.com/username/loanlens/backend/src/parsers"
	"github.com/username/loanlens/backend/src/processors"
)

const ckReconciliation = "res_reconciliation_%s_g%d_%s_%d"

type analysisServiceImpl struct {
	sessions    *SessionStore
	reconciler  *processors.Reconciler
	aggregator  *processors.TrendAggregator
	resultCache *cache.Cache
}

func NewAnalysisService(sessions *SessionStore, resultCache *cache.Cache) AnalysisService {
	return &analysisServiceImpl{
		sessions:    sessions,
		reconciler:  processors.NewReconciler(),
		aggregator:  processors.NewTrendAggregator(),
		resultCache: resultCache,
	}
}

func (s *analysisServiceImpl) CreateSession() string {
	return s.sessions.Create()
}

func (s *analysisServiceImpl) ClearSession(sessionID string) {
	s.sessions.Delete(sessionID)
}

// ProcessUpload parses one of the three dataset files into the session.
// Any previously derived results are invalidated by bumping the dataset
// generation, which every result cache key embeds.
func (s *analysisServiceImpl) ProcessUpload(sessionID, kind string, file io.Reader) (*UploadOutcome, error) {
	startTime := time.Now()
	logger.L.Info("ProcessUpload START", "sessionID", sessionID, "dataset", kind)

	ds, found := s.sessions.Get(sessionID)
	if !found {
		return nil, ErrSessionNotFound
	}

	var report models.LoadReport
	var err error
	switch kind {
	case models.DatasetOrders:
		ds.Orders, report, err = parsers.ParseOrders(file)
	case models.DatasetPlan:
		ds.Plan, report, err = parsers.ParsePlan(file)
	case models.DatasetPayments:
		ds.Payments, report, err = parsers.ParsePayments(file)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDatasetKind, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParsingFailed, err)
	}

	ds.Reports[kind] = report
	ds.Generation++

	logger.L.Info("ProcessUpload END",
		"sessionID", sessionID,
		"dataset", kind,
		"rowsLoaded", report.RowsLoaded,
		"rowsSkipped", report.RowsSkipped,
		"duration", time.Since(startTime))

	return &UploadOutcome{Report: report, DatasetReady: ds.Complete()}, nil
}

// Reconcile returns the reconciled installment table for the session,
// filtered per the options. The unfiltered computation is cached per
// (session, generation, reconciler settings); filtering is applied on
// the way out since it never mutates the cached slice.
func (s *analysisServiceImpl) Reconcile(sessionID string, opts AnalysisOptions) (*processors.ReconciliationResult, error) {
	ds, found := s.sessions.Get(sessionID)
	if !found {
		return nil, ErrSessionNotFound
	}
	if !ds.Complete() {
		return nil, ErrDatasetIncomplete
	}

	cacheKey := fmt.Sprintf(ckReconciliation,
		sessionID, ds.Generation,
		opts.Reconciler.AsOfDate.Format("20060102"), opts.Reconciler.GracePeriodDays)

	var result *processors.ReconciliationResult
	if cached, hit := s.resultCache.Get(cacheKey); hit {
		logger.L.Debug("Cache hit for reconciliation", "sessionID", sessionID)
		result = cached.(*processors.ReconciliationResult)
	} else {
		logger.L.Info("Cache miss for reconciliation, recomputing", "sessionID", sessionID)
		result = s.reconciler.Reconcile(ds.Orders, ds.Plan, ds.Payments, opts.Reconciler)
		s.resultCache.Set(cacheKey, result, cache.DefaultExpiration)
	}

	filtered := processors.FilterInstallments(result.Installments, ds.Orders, opts.Filter)
	if len(filtered) == len(result.Installments) {
		return result, nil
	}
	view := *result
	view.Installments = filtered
	return &view, nil
}

func (s *analysisServiceImpl) Trends(sessionID string, opts AnalysisOptions) ([]models.DelinquencyRecord, error) {
	result, err := s.Reconcile(sessionID, opts)
	if err != nil {
		return nil, err
	}
	ds, found := s.sessions.Get(sessionID)
	if !found {
		return nil, ErrSessionNotFound
	}
	return s.aggregator.Aggregate(result.Installments, ds.Orders, opts.Trend)
}

func (s *analysisServiceImpl) Summary(sessionID string, opts AnalysisOptions) (*models.AnalysisSummary, error) {
	result, err := s.Reconcile(sessionID, opts)
	if err != nil {
		return nil, err
	}
	ds, found := s.sessions.Get(sessionID)
	if !found {
		return nil, ErrSessionNotFound
	}
	summary := processors.Summarize(result, ds.Orders, ds.Payments)
	return &summary, nil
}

// Export streams one derived table in the requested format. Pure with
// respect to session state.
func (s *analysisServiceImpl) Export(w io.Writer, sessionID, table, format string, opts AnalysisOptions) error {
	switch format {
	case FormatCSV, FormatXLSX:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	switch table {
	case TableReconciliation:
		result, err := s.Reconcile(sessionID, opts)
		if err != nil {
			return err
		}
		if format == FormatCSV {
			return exporters.WriteReconciliationCSV(w, result.Installments)
		}
		return exporters.WriteReconciliationXLSX(w, result.Installments)
	case TableTrends:
		records, err := s.Trends(sessionID, opts)
		if err != nil {
			return err
		}
		if format == FormatCSV {
			return exporters.WriteTrendsCSV(w, records)
		}
		return exporters.WriteTrendsXLSX(w, records)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
}
