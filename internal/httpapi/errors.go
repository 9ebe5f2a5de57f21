package httpapi

import (
	"net/http"

	"github.com/R3E-Network/zkfactor/internal/factoring"
	"github.com/R3E-Network/zkfactor/internal/httputil"
)

var codeStatus = map[string]int{
	factoring.CodeInvalidInput:      http.StatusBadRequest,
	factoring.CodeInsufficientFunds: http.StatusConflict,
	factoring.CodeInvoiceExists:     http.StatusConflict,
	factoring.CodeNotFound:          http.StatusNotFound,
	factoring.CodeNotWhitelisted:    http.StatusForbidden,
	factoring.CodeUnavailable:       http.StatusServiceUnavailable,
}

// errorStatus maps a service error to its HTTP status and code.
func errorStatus(err error) (int, string) {
	code := factoring.ErrorCode(err)
	if status, ok := codeStatus[code]; ok {
		return status, code
	}
	return http.StatusInternalServerError, code
}

func (s *Server) writeError(w http.ResponseWriter, function string, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).WithField("function", function).Error("request failed")
	}
	httputil.WriteError(w, status, httputil.ErrorResponse{
		Error:     factoring.FriendlyMessage(function, err),
		Code:      code,
		Retryable: factoring.Retryable(err),
	})
}
