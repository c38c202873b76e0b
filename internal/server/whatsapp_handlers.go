package server

import (
	"net/http"

	"github.com/apricityDigital/attendease-backend/internal/messaging"
)

// HandleWhatsAppReport forwards a prepared report body to the external
// messaging gateway. Gateway failures surface as 502.
func HandleWhatsAppReport(gateway messaging.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gateway == nil {
			writeError(w, http.StatusServiceUnavailable, "messaging gateway not configured")
			return
		}

		var msg messaging.Message
		if err := decodeJSON(r, &msg); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if msg.Recipient == "" || msg.Body == "" {
			writeError(w, http.StatusBadRequest, "recipient and body are required")
			return
		}

		if err := gateway.SendReport(r.Context(), msg); err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}
