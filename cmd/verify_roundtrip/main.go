// verify_roundtrip runs one end-to-end check against the live hosted backend: create a report with one
// attachment, read it back, patch status and notes, and confirm it appears in this month's history.
// Usage: from project root, run: go run ./cmd/verify_roundtrip
// Requires .env (or env) with SUPABASE_URL, SUPABASE_ANON_KEY and the storage settings. Writes real rows.
package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"gestorreportes/config"
	"gestorreportes/models"
	"gestorreportes/repository"
	"gestorreportes/service"
	"gestorreportes/storage"

	"github.com/joho/godotenv"
)

// tinyJPEG is SOI/EOI markers around a tag; storage does not decode it
const tinyJPEG = "\xff\xd8\xff\xe0verify_roundtrip\xff\xd9"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env not found")
	}
	cfg := config.LoadConfig()
	if cfg.Backend.URL == "" || cfg.Backend.APIKey == "" {
		log.Fatal("SUPABASE_URL and SUPABASE_ANON_KEY are required")
	}
	if cfg.Storage.Backend != "" && cfg.Storage.Backend != "supabase" {
		log.Printf("[VERIFY] STORAGE_BACKEND=%s ignored; the round trip always uses the hosted storage API", cfg.Storage.Backend)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	httpClient := &http.Client{Timeout: 30 * time.Second}
	rest := repository.NewRestClient(cfg.Backend.URL, cfg.Backend.APIKey, httpClient)
	store := storage.NewSupabaseStore(cfg.Backend.URL, cfg.Backend.APIKey, cfg.Storage.Bucket, httpClient)
	reportRepo := repository.NewReportRepository(rest, cfg.Report.City)
	reportService := service.NewReportService(reportRepo, repository.NewAttachmentRepository(rest, store))

	// --- 1) Create report with one attachment ---
	lat, lng := cfg.Report.DefaultLatitude, cfg.Report.DefaultLongitude
	result, err := reportService.SubmitFullReport(ctx, &models.NewReportFields{
		IncidentType:      models.IncidentInformative,
		Latitude:          &lat,
		Longitude:         &lng,
		Description:       "round-trip verification " + time.Now().UTC().Format(time.RFC3339),
		LocationConfirmed: true,
	}, []models.AttachmentInput{{
		Kind:     models.FileImage,
		FileName: "verify.jpg",
		Size:     int64(len(tinyJPEG)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(tinyJPEG)), nil
		},
	}})
	if err != nil {
		log.Fatalf("[VERIFY] SubmitFullReport: %v", err)
	}
	id := result.Report.ID
	log.Printf("[VERIFY] Created report id=%s status=%s uploaded=%d/1", id, result.Report.Status, result.Uploaded())

	// --- 2) Read back ---
	report, attachments, err := reportService.GetReport(ctx, id)
	if err != nil {
		log.Fatalf("[VERIFY] GetReport: %v", err)
	}
	if report == nil {
		log.Fatalf("[VERIFY] Report %s not readable (check the select policy)", id)
	}
	log.Printf("[VERIFY] Read back report %s city=%s attachments=%d", report.ID, report.City, len(attachments))
	for _, a := range attachments {
		log.Printf("[VERIFY]   %s %s (%d bytes)", a.FileKind, a.StorageURL, a.ByteSize)
	}

	// --- 3) Admin mutations ---
	if _, err := reportService.UpdateStatus(ctx, id, models.StatusInProgress, "verify_roundtrip"); err != nil {
		log.Fatalf("[VERIFY] UpdateStatus: %v", err)
	}
	noted, err := reportService.SaveNotes(ctx, id, "verified by cmd/verify_roundtrip", "verify_roundtrip")
	if err != nil {
		log.Fatalf("[VERIFY] SaveNotes: %v", err)
	}
	log.Printf("[VERIFY] Patched report %s status=%s", noted.ID, noted.Status)

	// --- 4) History window ---
	month := time.Now().UTC().Format("2006-01")
	_, history, err := reportService.MonthlyHistory(ctx, month)
	if err != nil {
		log.Fatalf("[VERIFY] MonthlyHistory: %v", err)
	}
	found := false
	for _, r := range history {
		if r.ID == id {
			found = true
			break
		}
	}
	if !found {
		log.Fatalf("[VERIFY] Report %s missing from %s history (%d reports)", id, month, len(history))
	}
	log.Printf("[VERIFY] PASS: report %s found in %s history (%d reports)", id, month, len(history))
}
