package handler

import (
	"net/http"
	"strconv"
	"time"

	"gestorreportes/models"
	"gestorreportes/service"

	"github.com/gorilla/mux"
)

// AdminHandler provides the admin review endpoints. Routes are wrapped in RequireAdminSession.
type AdminHandler struct {
	reports  *service.ReportService
	sessions *service.SessionService
}

// NewAdminHandler creates an admin handler. sessions supplies the acting admin's name.
func NewAdminHandler(reports *service.ReportService, sessions *service.SessionService) *AdminHandler {
	return &AdminHandler{reports: reports, sessions: sessions}
}

type updateStatusRequest struct {
	Status models.ReportStatus `json:"status"`
}

type saveNotesRequest struct {
	Notes string `json:"notes"`
}

// parseFilters reads status, incidentType, from, to (RFC 3339 or YYYY-MM-DD) and limit
func parseFilters(r *http.Request) (models.ReportFilters, string) {
	q := r.URL.Query()
	filters := models.ReportFilters{
		Status:       models.ReportStatus(q.Get("status")),
		IncidentType: models.IncidentType(q.Get("incidentType")),
	}
	if filters.Status != "" && !filters.Status.Valid() {
		return filters, "unknown status"
	}
	if filters.IncidentType != "" && !filters.IncidentType.Valid() {
		return filters, "unknown incidentType"
	}
	for _, p := range []struct {
		key string
		dst **time.Time
	}{{"from", &filters.From}, {"to", &filters.To}} {
		raw := q.Get(p.key)
		if raw == "" {
			continue
		}
		t, err := parseTimeParam(raw)
		if err != nil {
			return filters, p.key + " must be RFC 3339 or YYYY-MM-DD"
		}
		*p.dst = &t
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filters, "limit must be a non-negative integer"
		}
		filters.Limit = limit
	}
	return filters, ""
}

func parseTimeParam(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

// ListReports returns reports for the dashboard. GET /api/v1/admin/reports
func (h *AdminHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	filters, problem := parseFilters(r)
	if problem != "" {
		respondWithError(w, http.StatusBadRequest, "Bad Request", problem)
		return
	}
	reports, err := h.reports.ListReports(r.Context(), filters)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"reports": reports, "count": len(reports)})
}

// Stats returns per-status counts. GET /api/v1/admin/reports/stats. limit is ignored.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	filters, problem := parseFilters(r)
	if problem != "" {
		respondWithError(w, http.StatusBadRequest, "Bad Request", problem)
		return
	}
	filters.Limit = 0
	stats, err := h.reports.DashboardStats(r.Context(), filters)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// GetReport returns one report with its attachments. GET /api/v1/admin/reports/{id}
func (h *AdminHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	id := models.ID(mux.Vars(r)["id"])
	report, attachments, err := h.reports.GetReport(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if report == nil {
		respondWithError(w, http.StatusNotFound, "Not Found", "Report not found")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"report": report, "attachments": attachments})
}

// UpdateStatus changes the status. POST /api/v1/admin/reports/{id}/status
func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}
	id := models.ID(mux.Vars(r)["id"])
	report, err := h.reports.UpdateStatus(r.Context(), id, req.Status, h.sessions.Current().AdminName)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"report": report})
}

// SaveNotes replaces the admin notes. POST /api/v1/admin/reports/{id}/notes
func (h *AdminHandler) SaveNotes(w http.ResponseWriter, r *http.Request) {
	var req saveNotesRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}
	id := models.ID(mux.Vars(r)["id"])
	report, err := h.reports.SaveNotes(r.Context(), id, req.Notes, h.sessions.Current().AdminName)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"report": report})
}
