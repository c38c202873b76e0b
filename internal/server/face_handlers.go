package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/apricityDigital/attendease-backend/internal/services/punch"
)

// HandleStoreFace enrols an employee's reference face image.
func HandleStoreFace(pipeline *punch.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}

		empID, err := strconv.ParseInt(r.FormValue("emp_id"), 10, 64)
		if err != nil || empID <= 0 {
			writeError(w, http.StatusBadRequest, "emp_id is required")
			return
		}

		image, _, err := r.FormFile("image")
		if err != nil {
			writeError(w, http.StatusBadRequest, "image is required")
			return
		}
		defer image.Close()
		body, err := io.ReadAll(io.LimitReader(image, maxUploadBytes))
		if err != nil {
			respondError(w, r, fmt.Errorf("read enrolment image: %w", err))
			return
		}

		employee, err := pipeline.Enrol(r.Context(), empID, body)
		if err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "employee": employee})
	}
}

// HandleDeleteFace removes an employee's face enrolment.
func HandleDeleteFace(pipeline *punch.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		empID, err := pathID(r, "empId")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := pipeline.Unenrol(r.Context(), empID); err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}
