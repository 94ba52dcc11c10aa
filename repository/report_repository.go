package repository

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gestorreportes/models"
)

const reportsPath = "/rest/v1/reports"

// ReportRepository handles the reports table of the hosted backend.
// Rows are immutable except for status, assignedAdmin, adminNotes and updatedAt;
// no method here writes any other column after creation.
type ReportRepository struct {
	rest *RestClient
	city string
}

// NewReportRepository creates a report repository. city is written on every new report.
func NewReportRepository(rest *RestClient, city string) *ReportRepository {
	return &ReportRepository{rest: rest, city: city}
}

type createReportPayload struct {
	IncidentType      models.IncidentType `json:"incidentType"`
	Latitude          float64             `json:"latitude"`
	Longitude         float64             `json:"longitude"`
	Address           string              `json:"address,omitempty"`
	Description       string              `json:"description,omitempty"`
	LocationConfirmed bool                `json:"locationConfirmed"`
	Status            models.ReportStatus `json:"status"`
	City              string              `json:"city"`
}

// ValidateNewReport checks the fields required before a report may be sent
func ValidateNewReport(fields *models.NewReportFields) error {
	if fields == nil {
		return &ValidationError{Message: "report fields are required"}
	}
	if fields.Latitude == nil || fields.Longitude == nil {
		return &ValidationError{Field: "location", Message: "latitude and longitude are required"}
	}
	if !fields.IncidentType.Valid() {
		return &ValidationError{Field: "incidentType", Message: fmt.Sprintf("unknown incident type %q", fields.IncidentType)}
	}
	return nil
}

// CreateReport inserts a new report. Status is always Pending.
func (r *ReportRepository) CreateReport(ctx context.Context, fields *models.NewReportFields) (*models.Report, error) {
	if err := ValidateNewReport(fields); err != nil {
		return nil, err
	}

	payload := createReportPayload{
		IncidentType:      fields.IncidentType,
		Latitude:          *fields.Latitude,
		Longitude:         *fields.Longitude,
		Address:           fields.Address,
		Description:       fields.Description,
		LocationConfirmed: fields.LocationConfirmed,
		Status:            models.StatusPending,
		City:              r.city,
	}

	body, _, err := r.rest.do(ctx, http.MethodPost, reportsPath, nil, payload, "failed to create report")
	if err != nil {
		return nil, err
	}
	report, err := decodeFirst[models.Report](body)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, fmt.Errorf("create report: %w", ErrEmptyResponse)
	}
	log.Printf("[report] created report %s (%s)", report.ID, report.IncidentType)
	return report, nil
}

// ListReportsByDateRange returns reports created in [from, to), newest first
func (r *ReportRepository) ListReportsByDateRange(ctx context.Context, from, to time.Time) ([]models.Report, error) {
	return r.ListAllReports(ctx, models.ReportFilters{From: &from, To: &to})
}

// ListAllReports returns reports matching every set filter, newest first.
// An empty filter lists all reports.
func (r *ReportRepository) ListAllReports(ctx context.Context, filters models.ReportFilters) ([]models.Report, error) {
	body, _, err := r.rest.do(ctx, http.MethodGet, reportsPath, reportQuery(filters), nil, "failed to list reports")
	if err != nil {
		return nil, err
	}
	reports, err := decodeRows[models.Report](body)
	if err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []models.Report{}
	}
	return reports, nil
}

// reportQuery builds the PostgREST filter for a listing
func reportQuery(filters models.ReportFilters) url.Values {
	q := url.Values{}
	q.Set("order", "createdAt.desc")
	if filters.Status != "" {
		q.Set("status", "eq."+string(filters.Status))
	}
	if filters.IncidentType != "" {
		q.Set("incidentType", "eq."+string(filters.IncidentType))
	}
	if filters.From != nil {
		q.Add("createdAt", "gte."+formatISO(*filters.From))
	}
	if filters.To != nil {
		q.Add("createdAt", "lt."+formatISO(*filters.To))
	}
	if filters.Limit > 0 {
		q.Set("limit", strconv.Itoa(filters.Limit))
	}
	return q
}

// GetReportByID returns the report, or nil when no row has that id
func (r *ReportRepository) GetReportByID(ctx context.Context, id models.ID) (*models.Report, error) {
	if strings.TrimSpace(string(id)) == "" {
		return nil, &ValidationError{Field: "id", Message: "report id is required"}
	}
	q := url.Values{}
	q.Set("id", "eq."+string(id))
	body, _, err := r.rest.do(ctx, http.MethodGet, reportsPath, q, nil, "failed to get report")
	if err != nil {
		return nil, err
	}
	return decodeFirst[models.Report](body)
}

// UpdateReportStatus sets status and assignedAdmin
func (r *ReportRepository) UpdateReportStatus(ctx context.Context, id models.ID, status models.ReportStatus, adminName string) (*models.Report, error) {
	if !status.Valid() {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}
	admin := nullableName(adminName)
	patch := map[string]interface{}{
		"status":        status,
		"assignedAdmin": admin,
	}
	fallback := models.Report{ID: id, Status: status, AssignedAdmin: admin}
	return r.patchReport(ctx, id, patch, fallback, "could not update the status")
}

// SetAdminNotes sets adminNotes and assignedAdmin
func (r *ReportRepository) SetAdminNotes(ctx context.Context, id models.ID, notes, adminName string) (*models.Report, error) {
	admin := nullableName(adminName)
	patch := map[string]interface{}{
		"adminNotes":    notes,
		"assignedAdmin": admin,
	}
	fallback := models.Report{ID: id, AdminNotes: &notes, AssignedAdmin: admin}
	return r.patchReport(ctx, id, patch, fallback, "could not save the notes")
}

// patchReport applies an admin mutation. An unreadable success body yields the
// fallback; an empty row set means the row policy filtered the update.
func (r *ReportRepository) patchReport(ctx context.Context, id models.ID, patch map[string]interface{}, fallback models.Report, action string) (*models.Report, error) {
	if strings.TrimSpace(string(id)) == "" {
		return nil, &ValidationError{Field: "id", Message: "report id is required"}
	}
	q := url.Values{}
	q.Set("id", "eq."+string(id))

	policyHint := action + "; check the row-level security policies of the reports table"
	body, status, err := r.rest.do(ctx, http.MethodPatch, reportsPath, q, patch, policyHint)
	if err != nil {
		return nil, err
	}

	rows, decodeErr := decodeRows[models.Report](body)
	if decodeErr != nil || len(bytes.TrimSpace(body)) == 0 {
		log.Printf("[report] patch of %s returned no readable body, using submitted values", id)
		return &fallback, nil
	}
	if len(rows) == 0 {
		return nil, &RemoteError{
			Status:  status,
			Message: fmt.Sprintf("no report updated for id %s: %s", id, policyHint),
		}
	}
	log.Printf("[report] updated report %s", id)
	return &rows[0], nil
}

func nullableName(name string) *string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	return &name
}
