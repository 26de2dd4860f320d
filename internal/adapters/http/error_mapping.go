package httpadapter

import (
	"net/http"

	"github.com/finvoy/invoice-autopilot/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrInvoiceNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrCapabilityUnavailable):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
