package api

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/causalfunnel/cartsurvey/internal/services"
)

func respond(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respond(w, map[string]interface{}{"error": message}, status)
}

// respondServiceError maps the service error taxonomy onto the HTTP
// contract: invalid -> 400, not_found -> 404, unauthorized -> 401,
// forbidden -> 403, anything else (persistence) -> 500 with the message
// passed through.
func respondServiceError(w http.ResponseWriter, err error) {
	if se, ok := services.AsServiceError(err); ok {
		switch se.Code {
		case services.ErrorInvalid:
			respondError(w, se.Message, http.StatusBadRequest)
		case services.ErrorNotFound:
			respondError(w, se.Message, http.StatusNotFound)
		case services.ErrorUnauthorized:
			respondError(w, se.Message, http.StatusUnauthorized)
		case services.ErrorForbidden:
			respondError(w, se.Message, http.StatusForbidden)
		default:
			respondError(w, se.Message, http.StatusInternalServerError)
		}
		return
	}
	logrus.WithError(err).Error("request failed")
	respondError(w, err.Error(), http.StatusInternalServerError)
}
