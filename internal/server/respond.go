package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/apricityDigital/attendease-backend/internal/auth"
	"github.com/apricityDigital/attendease-backend/internal/face"
	"github.com/apricityDigital/attendease-backend/internal/repository"
	"github.com/apricityDigital/attendease-backend/internal/services/attendance"
	"github.com/apricityDigital/attendease-backend/internal/services/punch"
	"github.com/apricityDigital/attendease-backend/internal/services/rbac"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("server: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}

// respondError maps service errors onto HTTP statuses. Unknown errors are
// logged and surfaced as opaque 500s.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrNoToken):
		writeError(w, http.StatusUnauthorized, "no token")
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusForbidden, "invalid or expired token")
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, rbac.ErrSystemRole), errors.Is(err, repository.ErrSystemRole):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, attendance.ErrAlreadyPunchedIn),
		errors.Is(err, attendance.ErrAlreadyPunchedOut),
		errors.Is(err, attendance.ErrMustPunchInFirst):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, punch.ErrEnrolmentMissing):
		writeError(w, http.StatusPreconditionFailed, "face enrollment missing")
	case errors.Is(err, punch.ErrNoMatch), errors.Is(err, punch.ErrVerificationFailed):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, face.ErrNoFaceDetected):
		writeError(w, http.StatusUnprocessableEntity, "no face detected")
	case errors.Is(err, face.ErrCollectionMissing):
		log.Printf("server: %s %s: %v", r.Method, r.URL.Path, err)
		writeError(w, http.StatusInternalServerError, "face collection not provisioned")
	default:
		log.Printf("server: %s %s: %v", r.Method, r.URL.Path, err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
