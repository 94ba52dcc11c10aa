package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"gestorreportes/models"
	"gestorreportes/repository"

	"golang.org/x/sync/errgroup"
)

// Attachment caps per report
const (
	MaxImagesPerReport = 3
	MaxVideosPerReport = 1
)

// ReportService orchestrates report submission and the admin views over reports
type ReportService struct {
	reports     *repository.ReportRepository
	attachments *repository.AttachmentRepository
}

// NewReportService creates a new report service
func NewReportService(reports *repository.ReportRepository, attachments *repository.AttachmentRepository) *ReportService {
	return &ReportService{reports: reports, attachments: attachments}
}

// CheckAttachmentLimits enforces the per-report media caps before any upload starts
func CheckAttachmentLimits(inputs []models.AttachmentInput) error {
	images, videos := 0, 0
	for i, in := range inputs {
		switch in.Kind {
		case models.FileImage:
			images++
		case models.FileVideo:
			videos++
		default:
			return &repository.ValidationError{Field: "attachments", Message: fmt.Sprintf("attachment %d has unknown kind %q", i, in.Kind)}
		}
		if in.Open == nil {
			return &repository.ValidationError{Field: "attachments", Message: fmt.Sprintf("attachment %d has no content", i)}
		}
	}
	if images > MaxImagesPerReport {
		return &repository.ValidationError{Field: "attachments", Message: fmt.Sprintf("at most %d images per report", MaxImagesPerReport)}
	}
	if videos > MaxVideosPerReport {
		return &repository.ValidationError{Field: "attachments", Message: fmt.Sprintf("at most %d video per report", MaxVideosPerReport)}
	}
	return nil
}

// SubmitQuickReport creates a report without attachments
func (s *ReportService) SubmitQuickReport(ctx context.Context, fields *models.NewReportFields) (*models.Report, error) {
	report, err := s.reports.CreateReport(ctx, fields)
	if err != nil {
		return nil, err
	}
	log.Printf("[report] quick report %s created (%s)", report.ID, report.IncidentType)
	return report, nil
}

// SubmitFullReport creates the report, then uploads every attachment concurrently.
// A failed upload is logged and left as a nil entry; it never fails the submission.
// Uploads are detached from ctx cancellation once the report exists.
func (s *ReportService) SubmitFullReport(ctx context.Context, fields *models.NewReportFields, inputs []models.AttachmentInput) (*models.SubmitResult, error) {
	if err := repository.ValidateNewReport(fields); err != nil {
		return nil, err
	}
	if err := CheckAttachmentLimits(inputs); err != nil {
		return nil, err
	}

	report, err := s.reports.CreateReport(ctx, fields)
	if err != nil {
		log.Printf("[report] create failed, no attachments uploaded: %v", err)
		return nil, err
	}
	log.Printf("[report] report %s created, uploading %d attachment(s)", report.ID, len(inputs))

	results := make([]*models.UploadResult, len(inputs))
	uploadCtx := context.WithoutCancel(ctx)
	var g errgroup.Group
	for i, in := range inputs {
		g.Go(func() error {
			res, err := s.uploadOne(uploadCtx, report.ID, in)
			if err != nil {
				log.Printf("[report] attachment %d (%s) of report %s failed: %v", i, in.FileName, report.ID, err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	g.Wait()

	result := &models.SubmitResult{Report: report, Attachments: results}
	log.Printf("[report] report %s: %d/%d attachment(s) uploaded", report.ID, result.Uploaded(), len(inputs))
	return result, nil
}

func (s *ReportService) uploadOne(ctx context.Context, reportID models.ID, in models.AttachmentInput) (*models.UploadResult, error) {
	rc, err := in.Open()
	if err != nil {
		return nil, &repository.UploadError{Key: in.FileName, Err: fmt.Errorf("failed to open file: %w", err)}
	}
	defer rc.Close()
	return s.attachments.UploadAttachment(ctx, rc, reportID, in.Kind, in.FileName)
}

// ListReports returns reports matching filters, newest first
func (s *ReportService) ListReports(ctx context.Context, filters models.ReportFilters) ([]models.Report, error) {
	return s.reports.ListAllReports(ctx, filters)
}

// GetReport returns a report with its attachments. The report is nil when missing.
func (s *ReportService) GetReport(ctx context.Context, id models.ID) (*models.Report, []models.Attachment, error) {
	report, err := s.reports.GetReportByID(ctx, id)
	if err != nil || report == nil {
		return nil, nil, err
	}
	attachments, err := s.attachments.ListAttachmentsForReport(ctx, report.ID)
	if err != nil {
		return nil, nil, err
	}
	return report, attachments, nil
}

// UpdateStatus changes a report's status on behalf of adminName
func (s *ReportService) UpdateStatus(ctx context.Context, id models.ID, status models.ReportStatus, adminName string) (*models.Report, error) {
	report, err := s.reports.UpdateReportStatus(ctx, id, status, adminName)
	if err != nil {
		return nil, err
	}
	log.Printf("[report] report %s -> %s by %s", id, status, adminName)
	return report, nil
}

// SaveNotes replaces a report's admin notes on behalf of adminName
func (s *ReportService) SaveNotes(ctx context.Context, id models.ID, notes, adminName string) (*models.Report, error) {
	return s.reports.SetAdminNotes(ctx, id, notes, adminName)
}

// DashboardStats counts the reports matching filters per status
func (s *ReportService) DashboardStats(ctx context.Context, filters models.ReportFilters) (*models.DashboardStats, error) {
	reports, err := s.reports.ListAllReports(ctx, filters)
	if err != nil {
		return nil, err
	}
	stats := &models.DashboardStats{ByStatus: make(map[models.ReportStatus]int, len(models.ReportStatuses))}
	for _, st := range models.ReportStatuses {
		stats.ByStatus[st] = 0
	}
	for _, r := range reports {
		stats.ByStatus[r.Status]++
	}
	stats.Total = len(reports)
	return stats, nil
}

// MonthlyHistory lists the reports created in month (YYYY-MM, UTC), newest first
func (s *ReportService) MonthlyHistory(ctx context.Context, month string) (*models.MonthWindow, []models.Report, error) {
	window, err := ParseMonth(month)
	if err != nil {
		return nil, nil, err
	}
	reports, err := s.reports.ListReportsByDateRange(ctx, window.From, window.To)
	if err != nil {
		return nil, nil, err
	}
	return window, reports, nil
}

var monthNames = [12]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

func monthWindow(year int, month time.Month) models.MonthWindow {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return models.MonthWindow{
		Key:   from.Format("2006-01"),
		Label: fmt.Sprintf("%s %d", monthNames[month-1], year),
		From:  from,
		To:    from.AddDate(0, 1, 0),
	}
}

// MonthWindows returns up to n months of year, December first
func MonthWindows(year, n int) []models.MonthWindow {
	if n < 1 {
		n = 1
	}
	if n > 12 {
		n = 12
	}
	windows := make([]models.MonthWindow, 0, n)
	for i := 0; i < n; i++ {
		windows = append(windows, monthWindow(year, time.December-time.Month(i)))
	}
	return windows
}

// ParseMonth parses YYYY-MM into its half-open window
func ParseMonth(month string) (*models.MonthWindow, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return nil, &repository.ValidationError{Field: "month", Message: fmt.Sprintf("expected YYYY-MM, got %q", month)}
	}
	w := monthWindow(t.Year(), t.Month())
	return &w, nil
}
