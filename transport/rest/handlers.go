package rest

import (
	"encoding/json"
	"net/http"
	"strconv"
)

type statsResponse struct {
	Rooms int `json:"rooms"`
}

func (that *Server) pingHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		that.logger.Error("failed to write pong", "error", err)
	}
}

func (that *Server) leaderboardHandler(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "leaderboardHandler")

	standings, err := that.leaderboard.Snapshot(r.Context())
	if err != nil {
		log.Error("failed to get standings", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	that.writeJSON(w, standings)
}

func (that *Server) matchesHandler(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "matchesHandler")

	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	results, err := that.matches.Recent(r.Context(), limit)
	if err != nil {
		log.Error("failed to get matches", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	that.writeJSON(w, results)
}

func (that *Server) statsHandler(w http.ResponseWriter, _ *http.Request) {
	that.writeJSON(w, statsResponse{Rooms: that.rooms.RoomCount()})
}

func (that *Server) writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}
