package chi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/csindex/internal/domain"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// sentinelHandler maps one sentinel to a status and code. The message is the
// sentinel text so internals such as AWS request ids do not leak.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

// transientHandler asks clients to retry domains that are processing or need indexing.
func transientHandler(retryAfter string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		var te *domain.TransientStateError
		if !errors.As(err, &te) {
			return false
		}
		w.Header().Set("Retry-After", retryAfter)
		writeError(w, http.StatusServiceUnavailable, CodeDomainUnavailable, te.Error())
		return true
	}
}

// preparationHandler names the failing record.
func preparationHandler(w http.ResponseWriter, err error) bool {
	var pe *domain.PreparationError
	if !errors.As(err, &pe) {
		return false
	}
	writeError(w, http.StatusUnprocessableEntity, CodePreparationFailed, pe.Error())
	return true
}

func defaultErrorHandlers(retryAfter string) []errorHandler {
	return []errorHandler{
		transientHandler(retryAfter),
		preparationHandler,
		sentinelHandler(domain.ErrSchemaReconciliation, http.StatusBadGateway, CodeReconcileFailed),
		sentinelHandler(domain.ErrPartialPreparation, http.StatusUnprocessableEntity, CodePreparationFailed),
		sentinelHandler(domain.ErrInvalidFieldValue, http.StatusUnprocessableEntity, CodePreparationFailed),
		sentinelHandler(domain.ErrIndexNotRegistered, http.StatusNotFound, CodeIndexNotRegistered),
		sentinelHandler(domain.ErrDomainNotFound, http.StatusNotFound, CodeDomainNotFound),
		sentinelHandler(domain.ErrRecordNotFound, http.StatusNotFound, CodeRecordNotFound),
		sentinelHandler(domain.ErrDocumentTooLarge, http.StatusRequestEntityTooLarge, CodeDocumentTooLarge),
		sentinelHandler(domain.ErrOperationTimedOut, http.StatusGatewayTimeout, CodeTimeout),
		sentinelHandler(domain.ErrInvalidFieldConfiguration, http.StatusInternalServerError, CodeInvalidConfig),
		sentinelHandler(domain.ErrUnsupportedFieldKind, http.StatusInternalServerError, CodeInvalidConfig),
		sentinelHandler(domain.ErrConfiguration, http.StatusBadRequest, CodeBadRequest),
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := requestLogger(r, s.logger)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("request failed", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
