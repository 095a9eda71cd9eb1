package httpadapter

import (
	"net/http"

	"github.com/mkravets/pdf-extract-service/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrFileValidation):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrBatchValidation):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrTimeout):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrPDFProcessing):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{
		"error": err.Error(),
		"type":  domain.KindLabel(err),
	})
}
