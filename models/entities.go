package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// IncidentType is the closed set of report severities offered to citizens
type IncidentType string

const (
	IncidentUrgent      IncidentType = "Urgent"
	IncidentImportant   IncidentType = "Important"
	IncidentInformative IncidentType = "Informative"
	IncidentEmergency   IncidentType = "Emergency"
)

// IncidentTypes lists every incident type in display order
var IncidentTypes = []IncidentType{IncidentUrgent, IncidentImportant, IncidentInformative, IncidentEmergency}

// Valid reports whether t belongs to the closed set
func (t IncidentType) Valid() bool {
	for _, known := range IncidentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ReportStatus represents the lifecycle status of a report
type ReportStatus string

const (
	StatusPending    ReportStatus = "Pending"
	StatusInProgress ReportStatus = "InProgress"
	StatusResolved   ReportStatus = "Resolved"
	StatusCancelled  ReportStatus = "Cancelled"
)

// ReportStatuses lists every status in dashboard order
var ReportStatuses = []ReportStatus{StatusPending, StatusInProgress, StatusResolved, StatusCancelled}

// Valid reports whether s is a known status
func (s ReportStatus) Valid() bool {
	for _, known := range ReportStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// FileKind is the media kind of an attachment
type FileKind string

const (
	FileImage FileKind = "image"
	FileVideo FileKind = "video"
)

// Valid reports whether k is image or video
func (k FileKind) Valid() bool {
	return k == FileImage || k == FileVideo
}

// ContentType returns the MIME type used when storing a payload of this kind
func (k FileKind) ContentType() string {
	if k == FileVideo {
		return "video/mp4"
	}
	return "image/jpeg"
}

// DefaultExtension is used when the original file name carries none
func (k FileKind) DefaultExtension() string {
	if k == FileVideo {
		return "mp4"
	}
	return "jpg"
}

// ID is a server-assigned identifier. The backend may emit it as a JSON number
// (bigint identity) or a string (uuid); both decode to the same text form.
type ID string

// UnmarshalJSON accepts numbers and strings
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits integer ids as numbers so round trips keep the backend's type
func (id ID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

// Report represents an incident report row. Only Status, AssignedAdmin,
// AdminNotes and UpdatedAt ever change after creation.
type Report struct {
	ID                ID           `json:"id"`
	IncidentType      IncidentType `json:"incidentType"`
	Latitude          float64      `json:"latitude"`
	Longitude         float64      `json:"longitude"`
	Address           *string      `json:"address"`
	Description       *string      `json:"description"`
	LocationConfirmed bool         `json:"locationConfirmed"`
	Status            ReportStatus `json:"status"`
	AssignedAdmin     *string      `json:"assignedAdmin"`
	AdminNotes        *string      `json:"adminNotes"`
	City              string       `json:"city"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         *time.Time   `json:"updatedAt"`
}

// NewReportFields holds what a citizen supplies when composing a report.
// Latitude and Longitude are pointers so an absent location is detectable.
type NewReportFields struct {
	IncidentType      IncidentType `json:"incidentType"`
	Latitude          *float64     `json:"latitude"`
	Longitude         *float64     `json:"longitude"`
	Address           string       `json:"address,omitempty"`
	Description       string       `json:"description,omitempty"`
	LocationConfirmed bool         `json:"locationConfirmed"`
}

// Attachment represents a stored media file linked to one report
type Attachment struct {
	ID           ID        `json:"id"`
	ReportID     ID        `json:"reportId"`
	FileKind     FileKind  `json:"fileKind"`
	StorageURL   string    `json:"storageUrl"`
	ByteSize     int64     `json:"byteSize"`
	OriginalName string    `json:"originalName"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
}

// UploadResult is returned after the binary is stored and its row recorded
type UploadResult struct {
	URL        string      `json:"url"`
	Attachment *Attachment `json:"attachment"`
}

// ReportFilters narrows admin listings. All set fields are combined with AND.
type ReportFilters struct {
	Status       ReportStatus `json:"status,omitempty"`
	IncidentType IncidentType `json:"incidentType,omitempty"`
	From         *time.Time   `json:"from,omitempty"` // inclusive
	To           *time.Time   `json:"to,omitempty"`   // exclusive
	Limit        int          `json:"limit,omitempty"`
}

// ErrorResponse is the JSON body of every panel API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
