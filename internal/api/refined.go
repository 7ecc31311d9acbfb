package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/casamack/tibber-refiner/internal/refiner"
)

// maxHourOrdinal is the last hour of a 25-hour DST day.
const maxHourOrdinal = 24

func (s *Server) handleGetRefinedDay(w http.ResponseWriter, r *http.Request) {
	date, ok := s.dateParam(w, r)
	if !ok {
		return
	}

	hours, err := s.store.Refined(r.Context(), date)
	if s.writeStoreError(w, err, "refined hours of "+date) {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":  date,
		"hours": hours,
		"count": len(hours),
	})
}

func (s *Server) handleGetRefinedHour(w http.ResponseWriter, r *http.Request) {
	date, ok := s.dateParam(w, r)
	if !ok {
		return
	}

	hour, err := strconv.Atoi(chi.URLParam(r, "hour"))
	if err != nil || hour < 0 || hour > maxHourOrdinal {
		writeBadRequest(w, "hour must be an integer between 0 and 24")
		return
	}

	refined, err := s.store.RefinedHour(r.Context(), date, hour)
	if s.writeStoreError(w, err, "refined hour "+strconv.Itoa(hour)+" of "+date) {
		return
	}

	writeJSON(w, http.StatusOK, refined)
}

// dateParam validates the {date} URL parameter and writes a 400 when it is malformed.
func (s *Server) dateParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	date := chi.URLParam(r, "date")
	if _, err := refiner.ParseDate(date, s.loc); err != nil {
		writeBadRequest(w, "date must be YYYY-MM-DD")
		return "", false
	}
	return date, true
}
