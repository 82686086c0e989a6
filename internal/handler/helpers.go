package handler

import (
	"context"
	"errors"
	"net/http"

	"diagramgen/internal/domain"
	llmSvc "diagramgen/internal/domain/services/llm"
	"diagramgen/internal/httputil"
)

// Problem kinds of generation failures
const (
	kindValidationFailed = "validation_failed"
	kindFailed           = "failed"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	var (
		forbiddenErr  *domain.ForbiddenFieldsError
		validationErr *llmSvc.ValidationFailure
		exhaustedErr  *llmSvc.ExhaustedError
	)

	switch {
	case errors.As(err, &validationErr):
		httputil.RespondErrorWithExtras(w, http.StatusUnprocessableEntity, validationErr.Error(), map[string]any{
			"kind":     kindValidationFailed,
			"reason":   validationErr.Reason,
			"provider": validationErr.Provider,
		})
	case errors.As(err, &exhaustedErr):
		httputil.RespondErrorWithExtras(w, http.StatusBadGateway, exhaustedErr.Error(), map[string]any{
			"kind":       kindFailed,
			"last_error": exhaustedErr.LastError,
		})
	case errors.As(err, &forbiddenErr):
		httputil.RespondErrorWithExtras(w, http.StatusForbidden, forbiddenErr.Error(), map[string]any{
			"fields": forbiddenErr.Fields,
		})
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// PathParam reads a required path value, answering 400 when it is blank
func PathParam(w http.ResponseWriter, r *http.Request, name, label string) (string, bool) {
	value := r.PathValue(name)
	if value == "" {
		httputil.RespondError(w, http.StatusBadRequest, label+" is required")
		return "", false
	}
	return value, true
}

// clientGone reports whether err only means the caller went away
func clientGone(r *http.Request, err error) bool {
	return errors.Is(err, context.Canceled) && r.Context().Err() != nil
}
