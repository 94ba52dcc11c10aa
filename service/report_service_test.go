package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"gestorreportes/internal/fakebackend"
	"gestorreportes/models"
	"gestorreportes/repository"
	"gestorreportes/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func newTestReportService(t *testing.T) (*fakebackend.Backend, *ReportService) {
	t.Helper()
	backend := fakebackend.New()
	t.Cleanup(backend.Close)
	rest := repository.NewRestClient(backend.URL(), backend.APIKey, backend.Server.Client())
	store := storage.NewSupabaseStore(backend.URL(), backend.APIKey, "report-files", backend.Server.Client())
	return backend, NewReportService(
		repository.NewReportRepository(rest, "Tarija"),
		repository.NewAttachmentRepository(rest, store),
	)
}

func file(kind models.FileKind, name, content string) models.AttachmentInput {
	return models.AttachmentInput{
		Kind:     kind,
		FileName: name,
		Size:     int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

func validFields() *models.NewReportFields {
	return &models.NewReportFields{
		IncidentType:      models.IncidentImportant,
		Latitude:          ptr(-21.53),
		Longitude:         ptr(-64.73),
		Description:       "pothole on the bridge",
		LocationConfirmed: true,
	}
}

func TestSubmitFullReportPartialUploadFailure(t *testing.T) {
	backend, svc := newTestReportService(t)
	backend.FailUploadNumber = 2

	res, err := svc.SubmitFullReport(context.Background(), validFields(), []models.AttachmentInput{
		file(models.FileImage, "a.jpg", "A"),
		file(models.FileImage, "b.jpg", "B"),
		file(models.FileImage, "c.jpg", "C"),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Report)
	assert.Len(t, res.Attachments, 3)
	assert.Equal(t, 2, res.Uploaded())

	rows := backend.Attachments()
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, res.Report.ID.String(), fmt.Sprint(row["reportId"]))
	}
	for _, a := range res.Attachments {
		if a != nil {
			assert.Equal(t, res.Report.ID, a.Attachment.ReportID)
			assert.True(t, strings.HasPrefix(a.URL, backend.URL()+"/storage/v1/object/public/report-files/"+res.Report.ID.String()+"/"))
		}
	}
	assert.Len(t, backend.ObjectKeys(), 2)
}

func TestSubmitFullReportWithoutLatitudeSendsNothing(t *testing.T) {
	backend, svc := newTestReportService(t)
	fields := validFields()
	fields.Latitude = nil

	_, err := svc.SubmitFullReport(context.Background(), fields, []models.AttachmentInput{
		file(models.FileImage, "a.jpg", "A"),
	})

	var vErr *repository.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Empty(t, backend.Requests())
}

func TestSubmitFullReportCreateFailureUploadsNothing(t *testing.T) {
	backend, svc := newTestReportService(t)
	backend.FailCreateReport = http.StatusInternalServerError

	_, err := svc.SubmitFullReport(context.Background(), validFields(), []models.AttachmentInput{
		file(models.FileImage, "a.jpg", "A"),
		file(models.FileVideo, "v.mp4", "V"),
	})

	var remote *repository.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Empty(t, backend.ObjectKeys())
	assert.Empty(t, backend.RequestsTo(http.MethodPost, "/storage/"))
	assert.Empty(t, backend.Attachments())
}

func TestSubmitFullReportEnforcesCapsBeforeNetwork(t *testing.T) {
	backend, svc := newTestReportService(t)

	_, err := svc.SubmitFullReport(context.Background(), validFields(), []models.AttachmentInput{
		file(models.FileImage, "1.jpg", "1"),
		file(models.FileImage, "2.jpg", "2"),
		file(models.FileImage, "3.jpg", "3"),
		file(models.FileImage, "4.jpg", "4"),
	})
	assert.True(t, repository.IsValidation(err))

	_, err = svc.SubmitFullReport(context.Background(), validFields(), []models.AttachmentInput{
		file(models.FileVideo, "1.mp4", "1"),
		file(models.FileVideo, "2.mp4", "2"),
	})
	assert.True(t, repository.IsValidation(err))
	assert.Empty(t, backend.Requests())
}

func TestSubmitFullReportOpenFailureIsIsolated(t *testing.T) {
	backend, svc := newTestReportService(t)
	broken := models.AttachmentInput{
		Kind:     models.FileVideo,
		FileName: "gone.mp4",
		Open:     func() (io.ReadCloser, error) { return nil, errors.New("file vanished") },
	}

	res, err := svc.SubmitFullReport(context.Background(), validFields(), []models.AttachmentInput{
		file(models.FileImage, "a.jpg", "A"),
		broken,
	})
	require.NoError(t, err)
	assert.NotNil(t, res.Attachments[0])
	assert.Nil(t, res.Attachments[1])
	assert.Len(t, backend.Attachments(), 1)
}

func TestSubmitFullReportSurvivesCancelledCaller(t *testing.T) {
	backend, svc := newTestReportService(t)
	ctx, cancel := context.WithCancel(context.Background())

	inputs := []models.AttachmentInput{{
		Kind:     models.FileImage,
		FileName: "late.jpg",
		Open: func() (io.ReadCloser, error) {
			cancel()
			return io.NopCloser(strings.NewReader("late")), nil
		},
	}}
	res, err := svc.SubmitFullReport(ctx, validFields(), inputs)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Uploaded())
	assert.Len(t, backend.Attachments(), 1)
}

func TestSubmitFullReportNoAttachments(t *testing.T) {
	backend, svc := newTestReportService(t)

	res, err := svc.SubmitFullReport(context.Background(), validFields(), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Report.ID)
	assert.Empty(t, res.Attachments)
	assert.Len(t, backend.Reports(), 1)
}

func TestSubmitQuickReport(t *testing.T) {
	backend, svc := newTestReportService(t)

	report, err := svc.SubmitQuickReport(context.Background(), &models.NewReportFields{
		IncidentType: models.IncidentUrgent,
		Latitude:     ptr(-21.5329),
		Longitude:    ptr(-64.7294),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, report.Status)
	assert.Empty(t, backend.RequestsTo(http.MethodPost, "/storage/"))
}

func TestCheckAttachmentLimits(t *testing.T) {
	assert.NoError(t, CheckAttachmentLimits(nil))
	assert.NoError(t, CheckAttachmentLimits([]models.AttachmentInput{
		file(models.FileImage, "1", "1"),
		file(models.FileImage, "2", "2"),
		file(models.FileImage, "3", "3"),
		file(models.FileVideo, "4", "4"),
	}))
	assert.Error(t, CheckAttachmentLimits([]models.AttachmentInput{{Kind: "audio"}}))
	assert.Error(t, CheckAttachmentLimits([]models.AttachmentInput{{Kind: models.FileImage}}))
}

func TestDashboardStats(t *testing.T) {
	backend, svc := newTestReportService(t)
	for _, st := range []string{"Pending", "Pending", "Resolved", "InProgress"} {
		backend.SeedReport(fakebackend.Row{"status": st})
	}

	stats, err := svc.DashboardStats(context.Background(), models.ReportFilters{})
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.ByStatus[models.StatusPending])
	assert.Equal(t, 1, stats.ByStatus[models.StatusResolved])
	assert.Equal(t, 1, stats.ByStatus[models.StatusInProgress])
	assert.Equal(t, 0, stats.ByStatus[models.StatusCancelled])
}

func TestMonthWindows(t *testing.T) {
	windows := MonthWindows(2026, 12)
	require.Len(t, windows, 12)
	assert.Equal(t, "2026-12", windows[0].Key)
	assert.Equal(t, "Diciembre 2026", windows[0].Label)
	assert.Equal(t, "2027-01-01T00:00:00Z", windows[0].To.Format("2006-01-02T15:04:05Z07:00"))
	assert.Equal(t, "2026-01", windows[11].Key)
	for i := 1; i < len(windows); i++ {
		assert.Equal(t, windows[i].To, windows[i-1].From, "windows tile without gaps")
	}

	assert.Len(t, MonthWindows(2026, 40), 12)
	assert.Len(t, MonthWindows(2026, 0), 1)
}

func TestMonthlyHistory(t *testing.T) {
	backend, svc := newTestReportService(t)
	backend.SeedReport(fakebackend.Row{"status": "Pending", "createdAt": "2026-02-28T23:59:59.999Z"})
	backend.SeedReport(fakebackend.Row{"status": "Pending", "createdAt": "2026-02-01T00:00:00.000Z"})
	backend.SeedReport(fakebackend.Row{"status": "Pending", "createdAt": "2026-03-01T00:00:00.000Z"})

	window, reports, err := svc.MonthlyHistory(context.Background(), "2026-02")
	require.NoError(t, err)
	assert.Equal(t, "Febrero 2026", window.Label)
	assert.Len(t, reports, 2)

	_, _, err = svc.MonthlyHistory(context.Background(), "February")
	assert.True(t, repository.IsValidation(err))
}

func TestGetReportWithAttachments(t *testing.T) {
	_, svc := newTestReportService(t)
	ctx := context.Background()
	res, err := svc.SubmitFullReport(ctx, validFields(), []models.AttachmentInput{file(models.FileVideo, "v.mp4", "V")})
	require.NoError(t, err)

	report, attachments, err := svc.GetReport(ctx, res.Report.ID)
	require.NoError(t, err)
	require.NotNil(t, report)
	require.Len(t, attachments, 1)
	assert.Equal(t, models.FileVideo, attachments[0].FileKind)

	missing, _, err := svc.GetReport(ctx, "999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpdateStatusAndNotes(t *testing.T) {
	_, svc := newTestReportService(t)
	ctx := context.Background()
	report, err := svc.SubmitQuickReport(ctx, validFields())
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, report.ID, models.StatusResolved, "Ana")
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, updated.Status)

	noted, err := svc.SaveNotes(ctx, report.ID, "crew dispatched", "Ana")
	require.NoError(t, err)
	require.NotNil(t, noted.AdminNotes)
	assert.Equal(t, "crew dispatched", *noted.AdminNotes)
	assert.Equal(t, models.StatusResolved, noted.Status, "notes do not touch status")
}
