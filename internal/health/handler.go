// Package health exposes the liveness probe endpoint.
package health

import "net/http"

// Handler reports process liveness. It takes no dependencies, so it answers
// even when the database or Redis are unreachable.
func Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
