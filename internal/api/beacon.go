package api

import (
	"encoding/json"
	"net/http"
)

const maxBeaconBodySize = 64 << 10

type clientErrorReport struct {
	Message string `json:"message"`
	Source  string `json:"source"`
	URL     string `json:"url"`
}

// handleClientErrors receives error beacons from the SPA's global error
// hooks. The reply tells the page whether to reload itself: true exactly
// when this report armed a recovery, false when the failure does not look
// like a stale asset or a reload already ran this episode.
//
// The endpoint never fails from the client's point of view. A beacon fires
// when the page is already broken; an error response would only generate
// another beacon.
func handleClientErrors(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBeaconBodySize)
		defer r.Body.Close()

		var report clientErrorReport
		if err := json.NewDecoder(r.Body).Decode(&report); err != nil || deps.Monitor == nil {
			writeJSON(w, http.StatusOK, map[string]bool{"reload": false})
			return
		}

		reload := false
		if report.URL != "" {
			reload = deps.Monitor.NotifyResourceError(report.URL)
		}
		if !reload && report.Message != "" {
			reload = deps.Monitor.NotifyRejection(report.Message)
		}

		deps.Logger.Info("client error reported",
			"source", report.Source,
			"message", report.Message,
			"url", report.URL,
			"reload", reload,
		)
		writeJSON(w, http.StatusOK, map[string]bool{"reload": reload})
	}
}
