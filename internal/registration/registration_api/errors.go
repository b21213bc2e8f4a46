package registration_api

import (
	"errors"
	"fmt"
	"net/http"

	"techsymposium/internal/imagestore"
	"techsymposium/internal/logger"
	"techsymposium/internal/registration"
	"techsymposium/internal/utils"
)

// WriteError maps domain errors to a status and envelope. Unknown errors
// are logged and reported without detail.
func WriteError(w http.ResponseWriter, log *logger.Logger, err error) {
	status, resp := ErrorFor(err)
	if status == http.StatusInternalServerError {
		log.Error("API", fmt.Sprintf("Internal error: %v", err))
	}
	utils.WriteJSON(w, status, resp)
}

func ErrorFor(err error) (int, utils.APIResponse) {
	var ve *registration.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, utils.ValidationResponse("Validation failed", ve.Fields)
	case errors.Is(err, registration.ErrEventNotFound):
		return http.StatusNotFound, utils.ErrorResponse("Event not found", "event_not_found")
	case errors.Is(err, registration.ErrAlreadyRegistered):
		return http.StatusConflict, utils.ErrorResponse("You are already registered for this event", "already_registered")
	case errors.Is(err, registration.ErrSubmissionInProgress):
		return http.StatusConflict, utils.ErrorResponse("A registration for this email is already being processed", "submission_in_progress")
	case errors.Is(err, imagestore.ErrNotImage), errors.Is(err, imagestore.ErrEmptyFile):
		return http.StatusBadRequest, utils.ErrorResponse("Payment proof must be an image", "invalid_image")
	case errors.Is(err, imagestore.ErrUploadFailed):
		return http.StatusBadGateway, utils.ErrorResponse("Payment proof upload failed", "upload_failed")
	default:
		return http.StatusInternalServerError, utils.ErrorResponse("Internal Server error", "internal_error")
	}
}
