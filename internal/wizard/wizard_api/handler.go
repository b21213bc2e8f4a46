package wizard_api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"techsymposium/internal/logger"
	"techsymposium/internal/registration"
	"techsymposium/internal/registration/registration_api"
	"techsymposium/internal/utils"
	"techsymposium/internal/wizard"
)

const maxJSONBytes = 1 << 20

type Handler struct {
	Service  *wizard.Service
	MaxBytes int64
	Logger   *logger.Logger
}

func NewHandler(service *wizard.Service, maxBytes int64, log *logger.Logger) *Handler {
	return &Handler{Service: service, MaxBytes: maxBytes, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/wizard", func(r chi.Router) {
		r.Post("/", h.Start)
		r.Get("/{id}", h.Get)
		r.Put("/{id}/personal", h.SubmitPersonal)
		r.Post("/{id}/back", h.Back)
		r.Post("/{id}/payment", h.SubmitPayment)
		r.Post("/{id}/restart", h.Restart)
	})
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	d, err := h.Service.Start(r.Context())
	if err != nil {
		h.writeError(w, nil, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Draft started", d))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, nil, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Draft retrieved", d))
}

func (h *Handler) SubmitPersonal(w http.ResponseWriter, r *http.Request) {
	var info registration.PersonalInfo
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes)).Decode(&info); err != nil {
		h.writeError(w, nil, registration.NewValidationError("body", "request body must be valid JSON"))
		return
	}

	d, err := h.Service.SubmitPersonal(r.Context(), chi.URLParam(r, "id"), info)
	h.respond(w, d, err, "Personal information saved")
}

func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	d, err := h.Service.Back(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, d, err, "Returned to personal information")
}

// SubmitPayment expects multipart fields file, paymentId and paymentMethod.
func (h *Handler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes+maxJSONBytes)
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		h.writeError(w, nil, registration.NewValidationError("body", "request must be multipart/form-data within the size limit"))
		return
	}

	sub := wizard.PaymentSubmission{
		PaymentID:     r.FormValue("paymentId"),
		PaymentMethod: r.FormValue("paymentMethod"),
	}
	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		sub.File = file
		sub.Filename = header.Filename
	}

	d, err := h.Service.SubmitPayment(r.Context(), chi.URLParam(r, "id"), sub)
	h.respond(w, d, err, "Registration complete")
}

func (h *Handler) Restart(w http.ResponseWriter, r *http.Request) {
	d, err := h.Service.Restart(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, d, err, "Draft restarted")
}

func (h *Handler) respond(w http.ResponseWriter, d *wizard.Draft, err error, message string) {
	if err != nil {
		h.writeError(w, d, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(message, d))
}

// writeError returns the draft alongside the error so the client can
// render the step it is still on.
func (h *Handler) writeError(w http.ResponseWriter, d *wizard.Draft, err error) {
	var status int
	var resp utils.APIResponse
	switch {
	case errors.Is(err, wizard.ErrDraftNotFound):
		status, resp = http.StatusNotFound, utils.ErrorResponse("Draft not found or expired", "draft_not_found")
	case errors.Is(err, wizard.ErrInvalidTransition):
		status, resp = http.StatusConflict, utils.ErrorResponse(err.Error(), "invalid_transition")
	case errors.Is(err, wizard.ErrSubmissionInFlight):
		status, resp = http.StatusConflict, utils.ErrorResponse(err.Error(), "submission_in_flight")
	default:
		status, resp = registration_api.ErrorFor(err)
		if status == http.StatusInternalServerError {
			h.Logger.Error("WIZARD", err.Error())
		}
	}
	if d != nil {
		resp.Data = d
	}
	utils.WriteJSON(w, status, resp)
}
