package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/createnexxusvision/NILPOC/internal/contracts"
	"github.com/createnexxusvision/NILPOC/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, contracts.SuccessResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, status int, code, message, requestID string) {
	writeJSON(w, status, contracts.ErrorResponse{
		Status: "error",
		Error: contracts.ErrorPayload{
			Code:      code,
			Message:   message,
			RequestID: requestID,
		},
	})
}

// mapDomainError translates wrapped sentinel errors into transport codes.
func mapDomainError(err error) (status int, code string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrPaused):
		return http.StatusServiceUnavailable, "paused"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrInvalidStateTransition):
		return http.StatusConflict, "invalid_state_transition"
	case errors.Is(err, domain.ErrAlreadySettled):
		return http.StatusConflict, "already_settled"
	case errors.Is(err, domain.ErrAlreadyAttested):
		return http.StatusConflict, "already_attested"
	case errors.Is(err, domain.ErrDeadlineNotReached):
		return http.StatusConflict, "deadline_not_reached"
	case errors.Is(err, domain.ErrTimelocked):
		return http.StatusConflict, "timelocked"
	case errors.Is(err, domain.ErrNotAttested):
		return http.StatusConflict, "not_attested"
	case errors.Is(err, domain.ErrSignatureExpired):
		return http.StatusUnauthorized, "signature_expired"
	case errors.Is(err, domain.ErrBadSignature):
		return http.StatusUnauthorized, "bad_signature"
	case errors.Is(err, domain.ErrNonceMismatch):
		return http.StatusConflict, "nonce_mismatch"
	case errors.Is(err, domain.ErrTransferFailed):
		return http.StatusBadGateway, "transfer_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
