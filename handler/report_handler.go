package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gestorreportes/models"
	"gestorreportes/repository"
	"gestorreportes/service"
)

// maxUploadMemory is the multipart buffer kept in memory before spilling to disk
const maxUploadMemory = 32 << 20

// Location is a coordinate pair
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ReportHandler serves the citizen report endpoints
type ReportHandler struct {
	reports  *service.ReportService
	fallback Location
	now      func() time.Time
}

// NewReportHandler creates a report handler. fallback is used by quick reports sent without a location.
func NewReportHandler(reports *service.ReportService, fallback Location) *ReportHandler {
	return &ReportHandler{reports: reports, fallback: fallback, now: time.Now}
}

type quickReportRequest struct {
	IncidentType models.IncidentType `json:"incidentType"`
	Latitude     *float64            `json:"latitude"`
	Longitude    *float64            `json:"longitude"`
	Address      string              `json:"address"`
	Description  string              `json:"description"`
}

// QuickReport handles POST /api/v1/reports/quick: a one-tap urgent report, no attachments.
func (h *ReportHandler) QuickReport(w http.ResponseWriter, r *http.Request) {
	var req quickReportRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}
	fields := &models.NewReportFields{
		IncidentType:      req.IncidentType,
		Latitude:          req.Latitude,
		Longitude:         req.Longitude,
		Address:           req.Address,
		Description:       req.Description,
		LocationConfirmed: req.Latitude != nil && req.Longitude != nil,
	}
	if fields.IncidentType == "" {
		fields.IncidentType = models.IncidentUrgent
	}
	if !fields.LocationConfirmed {
		lat, lng := h.fallback.Latitude, h.fallback.Longitude
		fields.Latitude, fields.Longitude = &lat, &lng
	}

	report, err := h.reports.SubmitQuickReport(r.Context(), fields)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]interface{}{"report": report})
}

// CreateReport handles POST /api/v1/reports (multipart/form-data).
// Fields: incidentType, latitude, longitude, address, description, locationConfirmed.
// Files: images (up to three), video (at most one).
func (h *ReportHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Expected multipart/form-data body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	fields, err := parseReportFields(r.MultipartForm.Value)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	inputs := multipartInputs(r.MultipartForm)

	result, err := h.reports.SubmitFullReport(r.Context(), fields, inputs)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, submitResponse(result))
}

// History handles GET /api/v1/reports/history?month=YYYY-MM (defaults to the current month)
func (h *ReportHandler) History(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		month = h.now().UTC().Format("2006-01")
	}
	window, reports, err := h.reports.MonthlyHistory(r.Context(), month)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"month":   window,
		"reports": reports,
		"count":   len(reports),
	})
}

// Months handles GET /api/v1/reports/months?year=YYYY (defaults to the current year)
func (h *ReportHandler) Months(w http.ResponseWriter, r *http.Request) {
	year := h.now().UTC().Year()
	if v := r.URL.Query().Get("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			respondWithError(w, http.StatusBadRequest, "Bad Request", "year must be a positive integer")
			return
		}
		year = parsed
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"months": service.MonthWindows(year, 12)})
}

func submitResponse(result *models.SubmitResult) map[string]interface{} {
	failed := 0
	for _, a := range result.Attachments {
		if a == nil {
			failed++
		}
	}
	return map[string]interface{}{
		"report":      result.Report,
		"attachments": result.Attachments,
		"uploaded":    result.Uploaded(),
		"failed":      failed,
	}
}

// parseReportFields reads the report fields from form values
func parseReportFields(values map[string][]string) (*models.NewReportFields, error) {
	get := func(key string) string {
		if v := values[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}
	lat, err := parseOptionalFloat("latitude", get("latitude"))
	if err != nil {
		return nil, err
	}
	lng, err := parseOptionalFloat("longitude", get("longitude"))
	if err != nil {
		return nil, err
	}
	confirmed := true
	if v := get("locationConfirmed"); v != "" {
		confirmed, err = strconv.ParseBool(v)
		if err != nil {
			return nil, &repository.ValidationError{Field: "locationConfirmed", Message: "must be true or false"}
		}
	}
	return &models.NewReportFields{
		IncidentType:      models.IncidentType(get("incidentType")),
		Latitude:          lat,
		Longitude:         lng,
		Address:           get("address"),
		Description:       get("description"),
		LocationConfirmed: confirmed,
	}, nil
}

func parseOptionalFloat(field, raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &repository.ValidationError{Field: field, Message: fmt.Sprintf("invalid number %q", raw)}
	}
	return &f, nil
}

// multipartInputs turns the images and video parts into attachment inputs.
// The parts stay readable until the form is removed.
func multipartInputs(form *multipart.Form) []models.AttachmentInput {
	var inputs []models.AttachmentInput
	add := func(kind models.FileKind, headers []*multipart.FileHeader) {
		for _, fh := range headers {
			inputs = append(inputs, models.AttachmentInput{
				Kind:     kind,
				FileName: fh.Filename,
				Size:     fh.Size,
				Open: func() (io.ReadCloser, error) {
					return fh.Open()
				},
			})
		}
	}
	add(models.FileImage, form.File["images"])
	add(models.FileVideo, form.File["video"])
	return inputs
}
