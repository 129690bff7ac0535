package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/username/loanlens/backend/src/logger"
	"github.com/username/loanlens/backend/src/services"
	"github.com/username/loanlens/backend/src/utils"
)

type ExportHandler struct {
	analysisService services.AnalysisService
}

func NewExportHandler(service services.AnalysisService) *ExportHandler {
	return &ExportHandler{analysisService: service}
}

// HandleExport streams one derived table as a file download. The table
// comes from the path (reconciliation|trends), the format from the
// "format" query parameter (csv default, or xlsx).
func (h *ExportHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := SessionIDFromRequest(r)
	if !ok {
		utils.SendJSONError(w, "missing X-Session-ID header", http.StatusBadRequest)
		return
	}

	table := r.PathValue("table")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = services.FormatCSV
	}

	opts, err := ParseAnalysisOptions(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Buffer the export so errors can still produce a JSON response
	// instead of a truncated download.
	var buf bytes.Buffer
	if err := h.analysisService.Export(&buf, sessionID, table, format, opts); err != nil {
		MapServiceError(w, sessionID, err)
		return
	}

	filename := fmt.Sprintf("loan_analysis_%s.%s", table, format)
	if format == services.FormatXLSX {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	} else {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", buf.Len()))

	if _, err := buf.WriteTo(w); err != nil {
		logger.L.Error("Error streaming export", "sessionID", sessionID, "table", table, "format", format, "error", err)
	}
	logger.L.Info("Export served", "sessionID", sessionID, "table", table, "format", format)
}
