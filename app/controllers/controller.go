package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"coahub/app/middleware"
	"coahub/app/models"
	"coahub/app/services"

	"github.com/sirupsen/logrus"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logrus.WithError(err).Warn("Failed to write response body")
	}
}

func sendError(w http.ResponseWriter, message string, status int) {
	middleware.WriteError(w, status, message)
}

func sendMessage(w http.ResponseWriter, message string) {
	sendJSON(w, http.StatusOK, map[string]string{"message": message})
}

// handleServiceError maps a service error kind to its HTTP status.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrConflict):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrAuthentication):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrAuthorization):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	default:
		status = http.StatusInternalServerError
		logrus.WithError(err).WithField("request_id", middleware.RequestIDFrom(r.Context())).
			Error("Request failed with internal error")
	}
	sendError(w, services.MessageOf(err), status)
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		sendError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// principal returns the caller stored by middleware.RequireAuth.
func principal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		sendError(w, "Authentication required", http.StatusUnauthorized)
	}
	return p, ok
}
