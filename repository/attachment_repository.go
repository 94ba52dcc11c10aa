package repository

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gestorreportes/models"

	"github.com/google/uuid"
)

const attachmentsPath = "/rest/v1/attachments"

// ObjectStore persists attachment payloads and knows their public URLs
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PublicURL(key string) string
}

// AttachmentRepository handles attachment payloads and the attachments table.
// A row is only ever written after its payload is stored.
type AttachmentRepository struct {
	rest  *RestClient
	store ObjectStore
	now   func() time.Time
}

// NewAttachmentRepository creates an attachment repository
func NewAttachmentRepository(rest *RestClient, store ObjectStore) *AttachmentRepository {
	return &AttachmentRepository{rest: rest, store: store, now: time.Now}
}

type createAttachmentPayload struct {
	ReportID     models.ID       `json:"reportId"`
	FileKind     models.FileKind `json:"fileKind"`
	StorageURL   string          `json:"storageUrl"`
	ByteSize     int64           `json:"byteSize"`
	OriginalName string          `json:"originalName"`
}

// UploadAttachment reads src fully, stores it under the report's namespace and
// records the metadata row. A failed row insert leaves the stored object in place.
func (r *AttachmentRepository) UploadAttachment(ctx context.Context, src io.Reader, reportID models.ID, kind models.FileKind, originalName string) (*models.UploadResult, error) {
	if strings.TrimSpace(string(reportID)) == "" {
		return nil, &ValidationError{Field: "reportId", Message: "report id is required"}
	}
	if !kind.Valid() {
		return nil, &ValidationError{Field: "fileKind", Message: fmt.Sprintf("unknown file kind %q", kind)}
	}

	key := r.objectKey(reportID, kind, originalName)

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, &UploadError{Key: key, Err: fmt.Errorf("failed to read payload: %w", err)}
	}
	size := int64(len(data))

	if err := r.store.Put(ctx, key, data, kind.ContentType()); err != nil {
		return nil, &UploadError{Key: key, Err: err}
	}
	publicURL := r.store.PublicURL(key)
	log.Printf("[upload] stored %s (%d bytes)", key, size)

	payload := createAttachmentPayload{
		ReportID:     reportID,
		FileKind:     kind,
		StorageURL:   publicURL,
		ByteSize:     size,
		OriginalName: originalName,
	}
	body, _, err := r.rest.do(ctx, http.MethodPost, attachmentsPath, nil, payload, "failed to save attachment reference")
	if err != nil {
		return nil, err
	}
	attachment, err := decodeFirst[models.Attachment](body)
	if err != nil {
		return nil, err
	}
	if attachment == nil {
		attachment = &models.Attachment{
			ReportID:     reportID,
			FileKind:     kind,
			StorageURL:   publicURL,
			ByteSize:     size,
			OriginalName: originalName,
		}
	}
	return &models.UploadResult{URL: publicURL, Attachment: attachment}, nil
}

// ListAttachmentsForReport returns every attachment row of a report
func (r *AttachmentRepository) ListAttachmentsForReport(ctx context.Context, reportID models.ID) ([]models.Attachment, error) {
	if strings.TrimSpace(string(reportID)) == "" {
		return nil, &ValidationError{Field: "reportId", Message: "report id is required"}
	}
	q := url.Values{}
	q.Set("reportId", "eq."+string(reportID))
	body, _, err := r.rest.do(ctx, http.MethodGet, attachmentsPath, q, nil, "failed to list attachments")
	if err != nil {
		return nil, err
	}
	attachments, err := decodeRows[models.Attachment](body)
	if err != nil {
		return nil, err
	}
	if attachments == nil {
		attachments = []models.Attachment{}
	}
	return attachments, nil
}

// keyExtension is the only extension shape carried into object keys
var keyExtension = regexp.MustCompile(`^[a-z0-9]{1,8}$`)

// objectKey builds <reportId>/<unixMillis>-<random>.<ext>. Extensions that are
// not short lowercase alphanumerics fall back to the kind's default.
func (r *AttachmentRepository) objectKey(reportID models.ID, kind models.FileKind, originalName string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(originalName), "."))
	if !keyExtension.MatchString(ext) {
		ext = kind.DefaultExtension()
	}
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s/%d-%s.%s", reportID, r.now().UnixMilli(), token, ext)
}
