package api

import (
	"net/http"

	"github.com/gaspardpetit/resumegen/internal/serverstate"
)

// HealthHandler reports the server lifecycle state. Draining servers answer
// 503 so load balancers stop routing to them.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	code := http.StatusOK
	if serverstate.IsDraining() {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": serverstate.GetState()})
}
