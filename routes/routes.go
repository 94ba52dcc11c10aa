package routes

import (
	"net/http"

	"gestorreportes/handler"
	"gestorreportes/middleware"
	"gestorreportes/service"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all panel API routes
func SetupRoutes(
	reportService *service.ReportService,
	sessionService *service.SessionService,
	fallback handler.Location,
) *mux.Router {
	router := mux.NewRouter()

	// Initialize handlers
	sessionHandler := handler.NewSessionHandler(sessionService)
	reportHandler := handler.NewReportHandler(reportService, fallback)
	formHandler := handler.NewFormHandler(reportService, fallback)
	adminHandler := handler.NewAdminHandler(reportService, sessionService)

	// API v1 routes
	apiV1 := router.PathPrefix("/api/v1").Subrouter()

	// Session routes (no session required)
	session := apiV1.PathPrefix("/session").Subrouter()
	session.HandleFunc("", sessionHandler.GetSession).Methods("GET")
	session.HandleFunc("/admin", sessionHandler.LoginAdmin).Methods("POST")
	session.HandleFunc("/user", sessionHandler.LoginUser).Methods("POST")
	session.HandleFunc("/logout", sessionHandler.Logout).Methods("POST")

	// Citizen report routes (any active session)
	reports := apiV1.PathPrefix("/reports").Subrouter()
	reports.Use(middleware.RequireSession(sessionService))
	reports.HandleFunc("", reportHandler.CreateReport).Methods("POST")
	reports.HandleFunc("/quick", reportHandler.QuickReport).Methods("POST")
	reports.HandleFunc("/history", reportHandler.History).Methods("GET")
	reports.HandleFunc("/months", reportHandler.Months).Methods("GET")

	// Report wizard routes (any active session)
	form := apiV1.PathPrefix("/form").Subrouter()
	form.Use(middleware.RequireSession(sessionService))
	form.HandleFunc("", formHandler.GetForm).Methods("GET")
	form.HandleFunc("/location", formHandler.ConfirmLocation).Methods("POST")
	form.HandleFunc("/files", formHandler.SelectFiles).Methods("POST")
	form.HandleFunc("/submit", formHandler.Submit).Methods("POST")
	form.HandleFunc("/reset", formHandler.Reset).Methods("POST")

	// Admin routes (admin session only)
	admin := apiV1.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireAdminSession(sessionService))
	admin.HandleFunc("/reports", adminHandler.ListReports).Methods("GET")
	admin.HandleFunc("/reports/stats", adminHandler.Stats).Methods("GET")
	admin.HandleFunc("/reports/{id}", adminHandler.GetReport).Methods("GET")
	admin.HandleFunc("/reports/{id}/status", adminHandler.UpdateStatus).Methods("POST")
	admin.HandleFunc("/reports/{id}/notes", adminHandler.SaveNotes).Methods("POST")

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return router
}
