package models

import (
	"io"
	"time"
)

// AttachmentInput is one media file selected for a report. Open is called once
// when the upload starts; the payload is read fully and closed.
type AttachmentInput struct {
	Kind     FileKind
	FileName string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// SubmitResult is the outcome of a full report submission. Attachments is
// index-aligned with the input; a nil entry marks a failed upload.
type SubmitResult struct {
	Report      *Report         `json:"report"`
	Attachments []*UploadResult `json:"attachments"`
}

// Uploaded counts the attachments that were stored and recorded
func (r *SubmitResult) Uploaded() int {
	n := 0
	for _, a := range r.Attachments {
		if a != nil {
			n++
		}
	}
	return n
}

// MonthWindow is a half-open [From, To) calendar month used by the history view
type MonthWindow struct {
	Key   string    `json:"key"` // YYYY-MM
	Label string    `json:"label"`
	From  time.Time `json:"from"`
	To    time.Time `json:"to"`
}

// DashboardStats summarises reports per status for the admin panel
type DashboardStats struct {
	Total    int                  `json:"total"`
	ByStatus map[ReportStatus]int `json:"byStatus"`
}
