package registration_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"techsymposium/internal/logger"
	"techsymposium/internal/pass"
	"techsymposium/internal/registration"
	"techsymposium/internal/registration/db"
	"techsymposium/internal/utils"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	Service *registration.Service
	DB      *db.DB
	Passes  *pass.Generator
	Logger  *logger.Logger
}

func NewHandler(service *registration.Service, store *db.DB, passes *pass.Generator, log *logger.Logger) *Handler {
	return &Handler{Service: service, DB: store, Passes: passes, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/register", h.Register)
	r.Get("/api/registrations/{id}/pass", h.GetPass)
}

// RegisterAdminRoutes mounts pass verification. The caller applies auth.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/api/admin/passes/verify", h.VerifyPass)
}

// Register handles the registration form submission.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)

	res, err := h.Service.Submit(r.Context(), body)
	if err != nil {
		WriteError(w, h.Logger, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Registration successful", res))
}

// GetPass returns the QR entry pass for a registration as a PNG.
func (h *Handler) GetPass(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	reg, err := h.DB.GetRegistrationByID(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("Registration not found", "registration_not_found"))
		return
	}
	if err != nil {
		WriteError(w, h.Logger, err)
		return
	}

	img, err := h.Passes.QR(pass.NewPayload(reg, time.Now()))
	if err != nil {
		WriteError(w, h.Logger, fmt.Errorf("generate pass for %s: %w", id, err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", "pass-"+reg.ID+".png"))
	w.WriteHeader(http.StatusOK)
	w.Write(img)
}

type verifyRequest struct {
	Code string `json:"code"`
}

type verifyResponse struct {
	Valid        bool          `json:"valid"`
	Pass         *pass.Payload `json:"pass,omitempty"`
	StudentName  string        `json:"studentName,omitempty"`
	Registration interface{}   `json:"registration,omitempty"`
}

// VerifyPass decrypts a scanned code and checks it against the stored
// registration.
func (h *Handler) VerifyPass(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		WriteError(w, h.Logger, registration.NewValidationError("body", "request body must be valid JSON"))
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		WriteError(w, h.Logger, registration.NewValidationError("code", "is required"))
		return
	}

	payload, err := h.Passes.Decrypt(strings.TrimSpace(req.Code))
	if err != nil {
		h.Logger.LogSecurity("PASS", fmt.Sprintf("Rejected pass code: %v", err))
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid pass", "invalid_pass"))
		return
	}

	reg, err := h.DB.GetRegistrationByID(r.Context(), payload.RegistrationID)
	if errors.Is(err, db.ErrNotFound) {
		h.Logger.LogSecurity("PASS", fmt.Sprintf("Pass for unknown registration %s", payload.RegistrationID))
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("Registration not found", "registration_not_found"))
		return
	}
	if err != nil {
		WriteError(w, h.Logger, err)
		return
	}
	if reg.StudentID != payload.StudentID || reg.EventID != payload.EventID || !strings.EqualFold(reg.StudentEmail, payload.Email) {
		h.Logger.LogSecurity("PASS", fmt.Sprintf("Pass does not match registration %s", reg.ID))
		utils.WriteJSON(w, http.StatusConflict, utils.ErrorResponse("Pass does not match the registration", "pass_mismatch"))
		return
	}

	resp := verifyResponse{Valid: true, Pass: payload, Registration: reg}
	if student, err := h.DB.GetStudentByID(r.Context(), reg.StudentID); err == nil {
		resp.StudentName = student.Name
	}
	h.Logger.LogRegistration("VERIFY", reg.ID, "pass accepted")
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Pass is valid", resp))
}
