package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/apricityDigital/attendease-backend/internal/auth"
	"github.com/apricityDigital/attendease-backend/internal/services/report"
)

// HandleReportDownload runs a grouped attendance report and renders it as
// JSON or CSV. The caller's city scope is injected into the query so rows
// outside the scope never leave the database.
func HandleReportDownload(engine *report.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		groupBy := q.Get("group_by")
		if groupBy == "" {
			groupBy = "detail"
		}
		locationType, err := report.ParseLocationType(q.Get("location_type"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filters, err := report.FiltersFromQuery(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		scope, ok := auth.GetCityScope(r.Context())
		if !ok {
			writeError(w, http.StatusInternalServerError, "unable to resolve city scope")
			return
		}

		rep, err := engine.Run(r.Context(), groupBy, locationType, filters, scope)
		if err != nil {
			respondError(w, r, err)
			return
		}

		format := q.Get("format")
		if format == "" {
			format = "json"
		}
		switch format {
		case "json":
			writeJSON(w, http.StatusOK, rep)
		case "csv":
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			w.Header().Set("Content-Disposition",
				fmt.Sprintf("attachment; filename=%q", rep.Filename(time.Now())))
			if err := rep.WriteCSV(w); err != nil {
				// Headers already sent; nothing left to tell the client.
				return
			}
		default:
			writeError(w, http.StatusBadRequest, fmt.Sprintf("format must be json or csv, got %q", format))
		}
	}
}
