package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront.git/internal/account"
	"github.com/ariefcatur/go-storefront.git/internal/backend"
	"github.com/ariefcatur/go-storefront.git/internal/cart"
	"github.com/ariefcatur/go-storefront.git/internal/checkout"
	"github.com/ariefcatur/go-storefront.git/internal/session"
)

const maxRequestBody = 1 << 20

type ErrorBody struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errCode, msg string, details map[string]any) {
	writeJSON(w, code, ErrorBody{Error: errCode, Message: msg, Details: details})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Solicitud inválida.", nil)
		return false
	}
	return true
}

var loginRedirect = map[string]any{"redirect": "/login"}

// fail maps every error a handler can see to one response.
func fail(w http.ResponseWriter, log *zap.Logger, err error) {
	var (
		fe *account.FormError
		se *backend.StatusError
	)
	switch {
	case errors.As(err, &fe):
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", fe.Message, nil)
	case errors.Is(err, account.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", account.MsgBadCredentials, nil)
	case errors.Is(err, account.ErrConfirmationRequired):
		writeError(w, http.StatusBadRequest, "confirmation_required", "¿Estás seguro de que quieres cerrar sesión?", nil)
	case errors.Is(err, checkout.ErrNoSession), errors.Is(err, session.ErrNoSession):
		writeError(w, http.StatusUnauthorized, "unauthenticated", "Debes iniciar sesión para continuar.", loginRedirect)
	case errors.Is(err, session.ErrCorrupt):
		writeError(w, http.StatusUnauthorized, "session_corrupt", "Error leyendo sesión. Vuelve a iniciar sesión.", loginRedirect)
	case errors.Is(err, checkout.ErrInFlight):
		writeError(w, http.StatusConflict, "checkout_in_flight", "Tu pedido ya se está procesando.", nil)
	case errors.Is(err, cart.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, "invalid_quantity", "La cantidad debe ser mayor a cero.", nil)
	case errors.Is(err, backend.ErrUnreachable):
		log.Warn("backend unreachable", zap.Error(err))
		writeError(w, http.StatusBadGateway, "backend_unreachable", "Error al conectar con el servidor.", nil)
	case backend.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", "No encontrado.", nil)
	case errors.As(err, &se):
		writeError(w, http.StatusBadGateway, "backend_error", "El servidor respondió con un error.", map[string]any{"status": se.Code})
	case errors.Is(err, backend.ErrMalformed), errors.Is(err, backend.ErrRejected):
		writeError(w, http.StatusBadGateway, "backend_error", "El servidor respondió con un error.", nil)
	default:
		log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "Ocurrió un error inesperado.", nil)
	}
}
