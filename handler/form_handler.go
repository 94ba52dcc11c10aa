package handler

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"

	"gestorreportes/formstate"
	"gestorreportes/models"
	"gestorreportes/service"
)

// FormHandler drives the step-by-step report wizard. There is one draft per
// process, matching the single active session.
type FormHandler struct {
	reports  *service.ReportService
	fallback Location
	machine  *formstate.Machine

	mu    sync.Mutex
	draft formDraft
}

type draftFile struct {
	kind models.FileKind
	name string
	data []byte
}

type formDraft struct {
	fields *models.NewReportFields
	files  []draftFile
}

// NewFormHandler creates a wizard handler. fallback is the location used when none is supplied.
func NewFormHandler(reports *service.ReportService, fallback Location) *FormHandler {
	return &FormHandler{reports: reports, fallback: fallback, machine: formstate.NewMachine()}
}

type formFileView struct {
	Kind models.FileKind `json:"kind"`
	Name string          `json:"name"`
	Size int             `json:"size"`
}

type formView struct {
	State   formstate.State         `json:"state"`
	Allowed []formstate.Event       `json:"allowed"`
	Fields  *models.NewReportFields `json:"fields,omitempty"`
	Files   []formFileView          `json:"files"`
}

func (h *FormHandler) view() formView {
	h.mu.Lock()
	defer h.mu.Unlock()
	state := h.machine.State()
	v := formView{State: state, Fields: h.draft.fields, Files: []formFileView{}}
	for _, e := range []formstate.Event{formstate.ConfirmLocation, formstate.SelectFiles, formstate.Submit, formstate.Reset} {
		if e == formstate.SelectFiles && h.draft.fields == nil {
			continue
		}
		if formstate.Allowed(state, e) {
			v.Allowed = append(v.Allowed, e)
		}
	}
	for _, f := range h.draft.files {
		v.Files = append(v.Files, formFileView{Kind: f.kind, Name: f.name, Size: len(f.data)})
	}
	return v
}

func (h *FormHandler) notAllowed(w http.ResponseWriter, e formstate.Event) {
	respondWithError(w, http.StatusConflict, "Conflict", fmt.Sprintf("%s is not available in %s", e, h.machine.State()))
}

// GetForm handles GET /api/v1/form
func (h *FormHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.view())
}

type confirmLocationRequest struct {
	IncidentType models.IncidentType `json:"incidentType"`
	Latitude     *float64            `json:"latitude"`
	Longitude    *float64            `json:"longitude"`
	Address      string              `json:"address"`
	Description  string              `json:"description"`
}

// ConfirmLocation handles POST /api/v1/form/location. A missing coordinate
// pair falls back to the configured default location.
func (h *FormHandler) ConfirmLocation(w http.ResponseWriter, r *http.Request) {
	var req confirmLocationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}
	if req.IncidentType != "" && !req.IncidentType.Valid() {
		respondWithError(w, http.StatusBadRequest, "Validation error", fmt.Sprintf("unknown incident type %q", req.IncidentType))
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		lat, lng := h.fallback.Latitude, h.fallback.Longitude
		req.Latitude, req.Longitude = &lat, &lng
	}
	if req.IncidentType == "" {
		req.IncidentType = models.IncidentImportant
	}

	h.mu.Lock()
	if _, _, ok := h.machine.Fire(formstate.ConfirmLocation); !ok {
		h.mu.Unlock()
		h.notAllowed(w, formstate.ConfirmLocation)
		return
	}
	h.draft.fields = &models.NewReportFields{
		IncidentType:      req.IncidentType,
		Latitude:          req.Latitude,
		Longitude:         req.Longitude,
		Address:           req.Address,
		Description:       req.Description,
		LocationConfirmed: true,
	}
	h.mu.Unlock()

	respondWithJSON(w, http.StatusOK, h.view())
}

// SelectFiles handles POST /api/v1/form/files (multipart: images, video).
// The files are buffered in memory until submit or reset.
func (h *FormHandler) SelectFiles(w http.ResponseWriter, r *http.Request) {
	if !formstate.Allowed(h.machine.State(), formstate.SelectFiles) {
		h.notAllowed(w, formstate.SelectFiles)
		return
	}
	if !h.hasFields() {
		respondWithError(w, http.StatusBadRequest, "Validation error", "confirm the location before selecting files")
		return
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Expected multipart/form-data body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	inputs := multipartInputs(r.MultipartForm)
	if len(inputs) == 0 {
		respondWithError(w, http.StatusBadRequest, "Validation error", "no files selected")
		return
	}
	if err := service.CheckAttachmentLimits(inputs); err != nil {
		respondWithServiceError(w, err)
		return
	}
	files := make([]draftFile, 0, len(inputs))
	for _, in := range inputs {
		data, err := readAll(in)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("failed to read %s", in.FileName))
			return
		}
		files = append(files, draftFile{kind: in.Kind, name: in.FileName, data: data})
	}

	h.mu.Lock()
	if h.draft.fields == nil {
		h.mu.Unlock()
		respondWithError(w, http.StatusBadRequest, "Validation error", "confirm the location before selecting files")
		return
	}
	if _, _, ok := h.machine.Fire(formstate.SelectFiles); !ok {
		h.mu.Unlock()
		h.notAllowed(w, formstate.SelectFiles)
		return
	}
	h.draft.files = files
	h.mu.Unlock()

	respondWithJSON(w, http.StatusOK, h.view())
}

// Submit handles POST /api/v1/form/submit. The draft is discarded on success
// and kept after a failure.
func (h *FormHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if _, _, ok := h.machine.Fire(formstate.Submit); !ok {
		h.mu.Unlock()
		h.notAllowed(w, formstate.Submit)
		return
	}
	fields := h.draft.fields
	inputs := make([]models.AttachmentInput, 0, len(h.draft.files))
	for _, f := range h.draft.files {
		inputs = append(inputs, models.AttachmentInput{
			Kind:     f.kind,
			FileName: f.name,
			Size:     int64(len(f.data)),
			Open: func() (io.ReadCloser, error) {
				return io.NopCloser(bytes.NewReader(f.data)), nil
			},
		})
	}
	h.mu.Unlock()

	result, err := h.reports.SubmitFullReport(r.Context(), fields, inputs)

	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		log.Printf("[form] submission failed: %v", err)
		if _, _, ok := h.machine.Fire(formstate.Fail); !ok {
			log.Printf("[form] submission outcome dropped, wizard was reset")
		}
		respondWithServiceError(w, err)
		return
	}
	if _, _, ok := h.machine.Fire(formstate.Succeed); ok {
		h.draft = formDraft{}
	}
	respondWithJSON(w, http.StatusCreated, submitResponse(result))
}

// Reset handles POST /api/v1/form/reset
func (h *FormHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if _, _, ok := h.machine.Fire(formstate.Reset); ok {
		h.draft = formDraft{}
	}
	h.mu.Unlock()
	respondWithJSON(w, http.StatusOK, h.view())
}

func (h *FormHandler) hasFields() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.draft.fields != nil
}

func readAll(in models.AttachmentInput) ([]byte, error) {
	rc, err := in.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
