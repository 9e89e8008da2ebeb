package api

import (
	"net/http"
)

type healthResponse struct {
	Status       string `json:"status"`
	EngineID     string `json:"engine_id"`
	EngineStatus string `json:"engine_status"`
}

// handleHealthz reports liveness of the process. A failed evaluation is a
// task outcome, not an unhealthy engine, so it still answers 200.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	st := s.engine.State()
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:       "ok",
		EngineID:     st.ID(),
		EngineStatus: st.Status(),
	})
}
