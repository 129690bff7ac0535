package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/username/loanlens/backend/src/config"
	"github.com/username/loanlens/backend/src/logger"
	"github.com/username/loanlens/backend/src/models"
	"github.com/username/loanlens/backend/src/services"
	"github.com/username/loanlens/backend/src/utils"
)

type AnalysisHandler struct {
	analysisService services.AnalysisService
}

func NewAnalysisHandler(service services.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysisService: service}
}

// ParseAnalysisOptions reads the UI-controlled settings from the query
// string: as_of, grace_days, due-date and principal filters, and trend
// bucketing. Defaults come from config.
func ParseAnalysisOptions(r *http.Request) (services.AnalysisOptions, error) {
	opts := services.AnalysisOptions{}
	opts.Reconciler.GracePeriodDays = config.Cfg.GracePeriodDays

	q := r.URL.Query()

	if v := q.Get("as_of"); v != "" {
		t, ok := utils.ParseFlexibleDate(v)
		if !ok {
			return opts, fmt.Errorf("invalid as_of date %q", v)
		}
		opts.Reconciler.AsOfDate = t
	}
	if v := q.Get("grace_days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 0 {
			return opts, fmt.Errorf("invalid grace_days %q", v)
		}
		opts.Reconciler.GracePeriodDays = days
	}

	if v := q.Get("from"); v != "" {
		t, ok := utils.ParseFlexibleDate(v)
		if !ok {
			return opts, fmt.Errorf("invalid from date %q", v)
		}
		opts.Filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, ok := utils.ParseFlexibleDate(v)
		if !ok {
			return opts, fmt.Errorf("invalid to date %q", v)
		}
		opts.Filter.To = t
	}
	if v := q.Get("min_principal"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return opts, fmt.Errorf("invalid min_principal %q", v)
		}
		opts.Filter.MinPrincipal = &d
	}
	if v := q.Get("max_principal"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return opts, fmt.Errorf("invalid max_principal %q", v)
		}
		opts.Filter.MaxPrincipal = &d
	}

	opts.Trend.Period = q.Get("period")
	opts.Trend.ByBorrower = strings.EqualFold(q.Get("by"), "borrower")

	return opts, nil
}

// HandleGetReconciliation returns the reconciled installment table with
// its warning counts. Supports If-None-Match so the dashboard can poll
// cheaply.
func (h *AnalysisHandler) HandleGetReconciliation(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := SessionIDFromRequest(r)
	if !ok {
		utils.SendJSONError(w, "missing X-Session-ID header", http.StatusBadRequest)
		return
	}

	opts, err := ParseAnalysisOptions(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.analysisService.Reconcile(sessionID, opts)
	if err != nil {
		MapServiceError(w, sessionID, err)
		return
	}
	if result.Installments == nil {
		result.Installments = []models.ReconciledInstallment{}
	}

	writeJSONWithETag(w, r, sessionID, result)
}

// HandleGetTrends returns the delinquency time series.
func (h *AnalysisHandler) HandleGetTrends(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := SessionIDFromRequest(r)
	if !ok {
		utils.SendJSONError(w, "missing X-Session-ID header", http.StatusBadRequest)
		return
	}

	opts, err := ParseAnalysisOptions(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	records, err := h.analysisService.Trends(sessionID, opts)
	if err != nil {
		MapServiceError(w, sessionID, err)
		return
	}
	if records == nil {
		records = []models.DelinquencyRecord{}
	}

	writeJSONWithETag(w, r, sessionID, records)
}

// HandleGetSummary returns the headline analysis figures.
func (h *AnalysisHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := SessionIDFromRequest(r)
	if !ok {
		utils.SendJSONError(w, "missing X-Session-ID header", http.StatusBadRequest)
		return
	}

	opts, err := ParseAnalysisOptions(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	summary, err := h.analysisService.Summary(sessionID, opts)
	if err != nil {
		MapServiceError(w, sessionID, err)
		return
	}

	writeJSONWithETag(w, r, sessionID, summary)
}

// writeJSONWithETag encodes the payload with ETag / If-None-Match
// handling. ETag errors degrade to a plain response.
func writeJSONWithETag(w http.ResponseWriter, r *http.Request, sessionID string, payload interface{}) {
	currentETag, etagErr := utils.GenerateETag(payload)

	w.Header().Set("Cache-Control", "no-cache, private")

	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("\"%s\"", currentETag)
		w.Header().Set("ETag", quotedETag)
		clientETag := r.Header.Get("If-None-Match")
		for _, cETag := range strings.Split(clientETag, ",") {
			if strings.TrimSpace(cETag) == quotedETag {
				logger.L.Debug("ETag match", "sessionID", sessionID, "etag", currentETag)
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	} else {
		logger.L.Warn("Proceeding without ETag check", "sessionID", sessionID, "error", etagErr)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.L.Error("Error generating JSON response", "sessionID", sessionID, "error", err)
	}
}
