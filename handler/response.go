package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"gestorreportes/models"
	"gestorreportes/repository"
)

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// respondWithError sends an error response
func respondWithError(w http.ResponseWriter, statusCode int, errorType, message string) {
	response := models.ErrorResponse{
		Error:   errorType,
		Message: message,
		Code:    statusCode,
	}
	respondWithJSON(w, statusCode, response)
}

// respondWithServiceError maps the gateway error taxonomy onto HTTP statuses
func respondWithServiceError(w http.ResponseWriter, err error) {
	var vErr *repository.ValidationError
	var remote *repository.RemoteError
	var upload *repository.UploadError
	switch {
	case errors.As(err, &vErr):
		respondWithError(w, http.StatusBadRequest, "Validation error", vErr.Error())
	case errors.As(err, &remote):
		respondWithError(w, http.StatusBadGateway, "Backend error", fmt.Sprintf("backend returned %d: %s", remote.Status, remote.Message))
	case errors.As(err, &upload):
		respondWithError(w, http.StatusBadGateway, "Upload error", upload.Error())
	default:
		log.Printf("[panel] unexpected error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Internal error", err.Error())
	}
}

// decodeJSON decodes an optional JSON body; an empty body leaves dst untouched
func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
