package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/apricityDigital/attendease-backend/internal/auth"
	"github.com/apricityDigital/attendease-backend/internal/objectstore"
	"github.com/apricityDigital/attendease-backend/internal/repository"
	"github.com/apricityDigital/attendease-backend/internal/services/attendance"
	"github.com/apricityDigital/attendease-backend/internal/services/punch"
	"github.com/apricityDigital/attendease-backend/internal/services/report"
)

// maxUploadBytes bounds multipart punch and enrolment uploads.
const maxUploadBytes = 32 << 20

type getOrCreateRequest struct {
	EmpID int64 `json:"emp_id"`
}

// HandleGetOrCreateAttendance returns today's attendance row for an
// employee, creating an absent row when none exists. An existing row is a
// 200 with a skip message, not a conflict.
func HandleGetOrCreateAttendance(svc *attendance.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req getOrCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.EmpID <= 0 {
			writeError(w, http.StatusBadRequest, "emp_id is required")
			return
		}

		row, created, err := svc.GetOrCreate(r.Context(), req.EmpID)
		if err != nil {
			respondError(w, r, err)
			return
		}

		if !created {
			writeJSON(w, http.StatusOK, map[string]any{
				"message": "Record exists, skipping",
				"data":    row,
			})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"data": row})
	}
}

// HandlePunch records a manual IN/OUT punch from a multipart form, with an
// optional image attachment stored alongside the row.
func HandlePunch(svc *attendance.Service, store objectstore.Store) http.HandlerFunc {
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
		punchType, err := attendance.ParsePunchType(r.FormValue("punch_type"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		p := attendance.Punch{EmpID: empID}
		p.Latitude, p.Longitude = formGeo(r)
		p.Address = formOptional(r, "address")
		if principal, ok := auth.GetPrincipal(r.Context()); ok {
			p.ActorUserID = &principal.UserID
		}

		if image, _, ferr := r.FormFile("image"); ferr == nil {
			defer image.Close()
			body, rerr := io.ReadAll(io.LimitReader(image, maxUploadBytes))
			if rerr != nil {
				respondError(w, r, fmt.Errorf("read punch image: %w", rerr))
				return
			}
			location := r.FormValue("location")
			if location == "" && p.Address != nil {
				location = *p.Address
			}
			key := punch.ImageKey(svc.Clock().Today(), r.FormValue("emp_name"), location, string(punchType), svc.Clock().Now())
			ref, serr := store.Put(r.Context(), key, body, "image/jpeg")
			if serr != nil {
				respondError(w, r, serr)
				return
			}
			p.ImageRef = &ref
		}

		row, err := svc.Record(r.Context(), punchType, p)
		if err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": row})
	}
}

// HandleFaceAttendance runs the face-verified punch flow. The "group" form
// flag switches to multi-face fan-out over a single frame.
func HandleFaceAttendance(pipeline *punch.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}

		punchType, err := attendance.ParsePunchType(r.FormValue("punch_type"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
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
			respondError(w, r, fmt.Errorf("read image: %w", err))
			return
		}

		req := punch.Request{
			PunchType: punchType,
			Image:     body,
			Location:  r.FormValue("location"),
		}
		req.Latitude, req.Longitude = formGeo(r)
		req.Address = formOptional(r, "address")
		if principal, ok := auth.GetPrincipal(r.Context()); ok {
			req.ActorUserID = &principal.UserID
		}
		if raw := r.FormValue("threshold"); raw != "" {
			threshold, perr := strconv.ParseFloat(raw, 64)
			if perr != nil || threshold < 0 || threshold > 100 {
				writeError(w, http.StatusBadRequest, "threshold must be a number in 0..100")
				return
			}
			req.Threshold = threshold
		}

		if isGroupMode(r.FormValue("group")) {
			result, gerr := pipeline.PunchGroup(r.Context(), req)
			if gerr != nil {
				respondError(w, r, gerr)
				return
			}
			writeJSON(w, http.StatusOK, result)
			return
		}

		result, err := pipeline.PunchSingle(r.Context(), req)
		if err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"data":       result.Attendance,
			"employee":   result.Employee,
			"similarity": result.Similarity,
		})
	}
}

// HandleAttendanceImage streams a stored punch image.
func HandleAttendanceImage(repo repository.AttendanceRepository, proxy *objectstore.Proxy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attendanceID, err := strconv.ParseInt(r.URL.Query().Get("attendance_id"), 10, 64)
		if err != nil || attendanceID <= 0 {
			writeError(w, http.StatusBadRequest, "attendance_id is required")
			return
		}
		punchType, err := attendance.ParsePunchType(r.URL.Query().Get("punch_type"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		row, err := repo.GetByID(r.Context(), attendanceID)
		if err != nil {
			respondError(w, r, err)
			return
		}

		ref := row.PunchInImage
		if punchType == attendance.PunchOut {
			ref = row.PunchOutImage
		}
		if ref == nil || *ref == "" {
			writeError(w, http.StatusNotFound, "no image recorded for this punch")
			return
		}

		if err := proxy.Stream(w, r, *ref); err != nil {
			respondError(w, r, err)
		}
	}
}

// HandleShortReport returns per-ward present/registered tallies for a date.
func HandleShortReport(engine *report.Engine, clock *attendance.Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := strings.TrimSpace(r.URL.Query().Get("date"))
		if date == "" {
			date = clock.Today()
		}

		scope, ok := auth.GetCityScope(r.Context())
		if !ok {
			writeError(w, http.StatusInternalServerError, "unable to resolve city scope")
			return
		}

		rows, err := engine.ShortReport(r.Context(),
			r.URL.Query().Get("cityName"),
			r.URL.Query().Get("zoneName"),
			date, scope)
		if err != nil {
			respondError(w, r, err)
			return
		}
		if rows == nil {
			rows = []report.ShortReportRow{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"date": date, "wards": rows, "count": len(rows)})
	}
}

func formGeo(r *http.Request) (lat, lng *float64) {
	if v, err := strconv.ParseFloat(r.FormValue("latitude"), 64); err == nil {
		lat = &v
	}
	if v, err := strconv.ParseFloat(r.FormValue("longitude"), 64); err == nil {
		lng = &v
	}
	return lat, lng
}

func formOptional(r *http.Request, field string) *string {
	if v := strings.TrimSpace(r.FormValue(field)); v != "" {
		return &v
	}
	return nil
}

func isGroupMode(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "group":
		return true
	default:
		return false
	}
}
