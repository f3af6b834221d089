// Package handler contains the HTTP handlers of the snippet API.
//
// WHAT IS A HANDLER?
// Anything that implements http.Handler, or more commonly an
// http.HandlerFunc; chi's router accepts these directly.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (URL params, query, body)
// 2. Call the service layer
// 3. Write the HTTP response (status code, headers, body)
//
// Handlers contain no business rules; authorization and validation live in
// the service, so they hold for every caller.
package handler

import "net/http"

// HandleHealth reports liveness.
//
// HTTP: GET /healthz
func HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
