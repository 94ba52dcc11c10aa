// Package fakebackend is an in-memory stand-in for the hosted REST and storage
// API. It understands the subset of PostgREST filters the repositories send
// and records every request so tests can inspect them.
package fakebackend

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

// Row is one stored table row
type Row map[string]interface{}

// Request is a recorded call
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Backend is a fake hosted backend. Zero failure fields mean every call succeeds.
type Backend struct {
	Server *httptest.Server
	APIKey string

	mu          sync.Mutex
	requests    []Request
	reports     []Row
	attachments []Row
	objects     map[string][]byte
	nextID      int64
	uploads     int
	now         func() time.Time

	// FailCreateReport makes POST /reports answer with this status
	FailCreateReport int
	// FailAttachmentInsert makes POST /attachments answer with this status
	FailAttachmentInsert int
	// FailUploadNumber fails the n-th storage upload (1-based)
	FailUploadNumber int
	// PatchStatus/PatchBody override the PATCH answer when PatchStatus is set
	PatchStatus int
	PatchBody   string
}

// New starts a fake backend; close it with Close
func New() *Backend {
	b := &Backend{
		APIKey:  "test-anon-key",
		objects: map[string][]byte{},
		nextID:  1,
		now:     time.Now,
	}
	router := mux.NewRouter()
	router.HandleFunc("/rest/v1/{table}", b.handleInsert).Methods(http.MethodPost)
	router.HandleFunc("/rest/v1/{table}", b.handleSelect).Methods(http.MethodGet)
	router.HandleFunc("/rest/v1/{table}", b.handlePatch).Methods(http.MethodPatch)
	router.HandleFunc("/storage/v1/object/public/{bucket}/{key:.+}", b.handleDownload).Methods(http.MethodGet)
	router.HandleFunc("/storage/v1/object/{bucket}/{key:.+}", b.handleUpload).Methods(http.MethodPost)
	b.Server = httptest.NewServer(b.record(router))
	return b
}

// URL is the base URL of the fake backend
func (b *Backend) URL() string { return b.Server.URL }

// Close shuts the server down
func (b *Backend) Close() { b.Server.Close() }

// SetClock replaces the clock used for createdAt / updatedAt
func (b *Backend) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// Requests returns a copy of every recorded request
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Request, len(b.requests))
	copy(out, b.requests)
	return out
}

// RequestsTo returns recorded requests with the given method and path prefix
func (b *Backend) RequestsTo(method, pathPrefix string) []Request {
	var out []Request
	for _, r := range b.Requests() {
		if r.Method == method && strings.HasPrefix(r.Path, pathPrefix) {
			out = append(out, r)
		}
	}
	return out
}

// Attachments returns stored attachment rows
func (b *Backend) Attachments() []Row {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Row(nil), b.attachments...)
}

// Reports returns stored report rows
func (b *Backend) Reports() []Row {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Row(nil), b.reports...)
}

// Object returns a stored payload by key
func (b *Backend) Object(key string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	return data, ok
}

// ObjectKeys lists stored payload keys in order
func (b *Backend) ObjectKeys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SeedReport stores a report row directly, assigning id when missing
func (b *Backend) SeedReport(row Row) Row {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := row["id"]; !ok {
		row["id"] = b.nextID
		b.nextID++
	}
	if _, ok := row["createdAt"]; !ok {
		row["createdAt"] = iso(b.now())
	}
	b.reports = append(b.reports, row)
	return row
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		b.mu.Unlock()
		if r.Header.Get("apikey") != b.APIKey {
			writeJSON(w, http.StatusUnauthorized, Row{"message": "Invalid API key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) table(name string) (*[]Row, bool) {
	switch name {
	case "reports":
		return &b.reports, true
	case "attachments":
		return &b.attachments, true
	default:
		return nil, false
	}
}

func (b *Backend) handleInsert(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["table"]
	b.mu.Lock()
	defer b.mu.Unlock()

	if name == "reports" && b.FailCreateReport != 0 {
		writeJSON(w, b.FailCreateReport, Row{"message": "insert rejected", "code": "PGRST000"})
		return
	}
	if name == "attachments" && b.FailAttachmentInsert != 0 {
		writeJSON(w, b.FailAttachmentInsert, Row{"message": "attachment insert rejected"})
		return
	}
	rows, ok := b.table(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, Row{"message": fmt.Sprintf("relation %q does not exist", name)})
		return
	}
	var row Row
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		writeJSON(w, http.StatusBadRequest, Row{"message": "invalid JSON"})
		return
	}
	row["id"] = b.nextID
	b.nextID++
	row["createdAt"] = iso(b.now())
	if name == "reports" {
		row["updatedAt"] = nil
		row["assignedAdmin"] = nil
		row["adminNotes"] = nil
	}
	*rows = append(*rows, row)
	writeJSON(w, http.StatusCreated, []Row{row})
}

func (b *Backend) handleSelect(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["table"]
	b.mu.Lock()
	defer b.mu.Unlock()
	rows, ok := b.table(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, Row{"message": fmt.Sprintf("relation %q does not exist", name)})
		return
	}
	q := r.URL.Query()
	out := []Row{}
	for _, row := range *rows {
		if matches(row, q) {
			out = append(out, row)
		}
	}
	if q.Get("order") == "createdAt.desc" {
		sort.SliceStable(out, func(i, j int) bool {
			return parseISO(out[i]["createdAt"]).After(parseISO(out[j]["createdAt"]))
		})
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit >= 0 && limit < len(out) {
		out = out[:limit]
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handlePatch(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["table"]
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.PatchStatus != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(b.PatchStatus)
		w.Write([]byte(b.PatchBody))
		return
	}
	rows, ok := b.table(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, Row{"message": fmt.Sprintf("relation %q does not exist", name)})
		return
	}
	var patch Row
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, Row{"message": "invalid JSON"})
		return
	}
	q := r.URL.Query()
	updated := []Row{}
	for _, row := range *rows {
		if !matches(row, q) {
			continue
		}
		for k, v := range patch {
			row[k] = v
		}
		row["updatedAt"] = iso(b.now())
		updated = append(updated, row)
	}
	writeJSON(w, http.StatusOK, updated)
}

func (b *Backend) handleUpload(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploads++
	if b.FailUploadNumber != 0 && b.uploads == b.FailUploadNumber {
		writeJSON(w, http.StatusInternalServerError, Row{"message": "simulated storage failure"})
		return
	}
	data, _ := io.ReadAll(r.Body)
	b.objects[vars["key"]] = data
	writeJSON(w, http.StatusOK, Row{"Key": vars["bucket"] + "/" + vars["key"]})
}

func (b *Backend) handleDownload(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	data, ok := b.objects[mux.Vars(r)["key"]]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, Row{"message": "Object not found"})
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// matches applies eq./gte./lt. filters; order and limit are not filters
func matches(row Row, q url.Values) bool {
	for column, values := range q {
		if column == "order" || column == "limit" || column == "select" {
			continue
		}
		for _, v := range values {
			op, operand, ok := strings.Cut(v, ".")
			if !ok {
				return false
			}
			switch op {
			case "eq":
				if fmt.Sprint(row[column]) != operand {
					return false
				}
			case "gte":
				if parseISO(row[column]).Before(parseISO(operand)) {
					return false
				}
			case "lt":
				if !parseISO(row[column]).Before(parseISO(operand)) {
					return false
				}
			default:
				return false
			}
		}
	}
	return true
}

func iso(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func parseISO(v interface{}) time.Time {
	s, _ := v.(string)
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
