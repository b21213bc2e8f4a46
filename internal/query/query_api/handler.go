package query_api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"techsymposium/internal/dashboard"
	"techsymposium/internal/logger"
	"techsymposium/internal/query"
	"techsymposium/internal/utils"
)

type Handler struct {
	Service *query.Service
	Logger  *logger.Logger
}

func NewHandler(service *query.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// RegisterRoutes mounts the public event routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/events", h.ListEvents)
	r.Get("/api/events/{id}", h.GetEvent)
}

// RegisterAdminRoutes mounts the dashboard routes. The caller applies auth.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/api/students", h.ListStudents)
	r.Get("/api/admin/students", h.DashboardStudents)
	r.Get("/api/admin/export", h.ExportStudents)
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	featured, _ := strconv.ParseBool(r.URL.Query().Get("featured"))

	var (
		events []query.EventSummary
		err    error
	)
	if featured {
		events, err = h.Service.ListFeatured(r.Context())
	} else {
		events, err = h.Service.ListEvents(r.Context())
	}
	if err != nil {
		h.Logger.Error("QUERY", fmt.Sprintf("Failed to list events: %v", err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to fetch events", "internal_error"))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Events retrieved", events))
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	event, err := h.Service.GetEvent(r.Context(), id)
	if errors.Is(err, query.ErrEventNotFound) {
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("Event not found", "event_not_found"))
		return
	}
	if err != nil {
		h.Logger.Error("QUERY", fmt.Sprintf("Failed to load event %s: %v", id, err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to fetch event", "internal_error"))
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event retrieved", event))
}

func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.loadStudents(w, r)
	if !ok {
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Students retrieved", rows))
}

type dashboardResponse struct {
	Filter   dashboard.Filter       `json:"filter"`
	Total    int                    `json:"total"`
	Students []query.StudentView    `json:"students"`
	Groups   []dashboard.EventGroup `json:"groups"`
}

func (h *Handler) DashboardStudents(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.loadStudents(w, r)
	if !ok {
		return
	}

	filter := filterFromRequest(r)
	filtered := filter.Apply(rows)
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Students retrieved", dashboardResponse{
		Filter:   filter,
		Total:    len(filtered),
		Students: filtered,
		Groups:   dashboard.GroupByEvent(filtered),
	}))
}

func (h *Handler) ExportStudents(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.loadStudents(w, r)
	if !ok {
		return
	}

	filter := filterFromRequest(r)
	var buf bytes.Buffer
	if err := dashboard.ExportCSV(&buf, filter.Apply(rows)); err != nil {
		h.Logger.Error("QUERY", fmt.Sprintf("Failed to render CSV export: %v", err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to export students", "internal_error"))
		return
	}

	name := dashboard.ExportFileName(filter.Event)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *Handler) loadStudents(w http.ResponseWriter, r *http.Request) ([]query.StudentView, bool) {
	rows, err := h.Service.ListStudents(r.Context())
	if err != nil {
		h.Logger.Error("QUERY", fmt.Sprintf("Failed to list students: %v", err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Internal Server error", "internal_error"))
		return nil, false
	}
	return rows, true
}

func filterFromRequest(r *http.Request) dashboard.Filter {
	q := r.URL.Query()
	return dashboard.Filter{
		Search:  q.Get("search"),
		Event:   q.Get("event"),
		Payment: q.Get("payment"),
	}
}
