package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Workflows
	mux.Handle("GET /api/v1/workflows", chain(http.HandlerFunc(h.ListWorkflows)))
	mux.Handle("POST /api/v1/workflows", chain(http.HandlerFunc(h.CreateWorkflow)))
	mux.Handle("GET /api/v1/workflows/{id}", chain(http.HandlerFunc(h.GetWorkflow)))
	mux.Handle("PUT /api/v1/workflows/{id}", chain(http.HandlerFunc(h.UpdateWorkflow)))
	mux.Handle("DELETE /api/v1/workflows/{id}", chain(http.HandlerFunc(h.DeleteWorkflow)))

	// Executions
	mux.Handle("POST /api/v1/workflows/{id}/executions", chain(http.HandlerFunc(h.CreateExecution)))
	mux.Handle("GET /api/v1/workflows/{id}/executions", chain(http.HandlerFunc(h.ListExecutions)))
	mux.Handle("GET /api/v1/executions/{id}", chain(http.HandlerFunc(h.GetExecution)))
	mux.Handle("POST /api/v1/executions/{id}/cancel", chain(http.HandlerFunc(h.CancelExecution)))
	mux.Handle("DELETE /api/v1/executions/{id}", chain(http.HandlerFunc(h.DeleteExecution)))

	// Credentials
	mux.Handle("GET /api/v1/credentials", chain(http.HandlerFunc(h.ListCredentials)))
	mux.Handle("POST /api/v1/credentials", chain(http.HandlerFunc(h.CreateCredential)))
	mux.Handle("PUT /api/v1/credentials/{id}", chain(http.HandlerFunc(h.UpdateCredential)))
	mux.Handle("DELETE /api/v1/credentials/{id}", chain(http.HandlerFunc(h.DeleteCredential)))

	// Schedules
	mux.Handle("GET /api/v1/schedules", chain(http.HandlerFunc(h.ListSchedules)))
	mux.Handle("POST /api/v1/workflows/{id}/schedules", chain(http.HandlerFunc(h.CreateSchedule)))
	mux.Handle("GET /api/v1/schedules/{id}", chain(http.HandlerFunc(h.GetSchedule)))
	mux.Handle("PUT /api/v1/schedules/{id}/enabled", chain(http.HandlerFunc(h.SetScheduleEnabled)))
	mux.Handle("DELETE /api/v1/schedules/{id}", chain(http.HandlerFunc(h.DeleteSchedule)))
}
