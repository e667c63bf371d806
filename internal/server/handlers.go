package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/heavenlydemon269/vibelist/catalog"
	"github.com/heavenlydemon269/vibelist/engine"
	"github.com/heavenlydemon269/vibelist/session"
)

type recommendRequest struct {
	Vibe    string   `json:"vibe" validate:"max=4096"`
	Exclude []string `json:"exclude" validate:"max=10000"`
	Count   int      `json:"count" validate:"gte=0"`
}

type createSessionRequest struct {
	Vibe  string `json:"vibe" validate:"required,max=4096"`
	Count int    `json:"count" validate:"gte=0"`
}

type refineRequest struct {
	Text  string `json:"text" validate:"max=4096"`
	Count int    `json:"count" validate:"gte=0"`
}

type trackJSON struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Artist   string  `json:"artist"`
	Album    string  `json:"album,omitempty"`
	Distance float32 `json:"distance"`
}

type recommendResponse struct {
	Tracks   []trackJSON `json:"tracks"`
	Searches int         `json:"searches"`
}

type sessionResponse struct {
	Session  *session.Session `json:"session"`
	Added    []trackJSON      `json:"added"`
	NotFound []trackJSON      `json:"not_found"`
}

func toJSON(recs []engine.Recommendation) []trackJSON {
	out := make([]trackJSON, len(recs))
	for i, r := range recs {
		out[i] = trackJSON{ID: r.Track.ID, Name: r.Track.Name, Artist: r.Track.Artist, Album: r.Track.Album, Distance: r.Distance}
	}
	return out
}

func tracksJSON(tracks []catalog.Track) []trackJSON {
	out := make([]trackJSON, len(tracks))
	for i, t := range tracks {
		out[i] = trackJSON{ID: t.ID, Name: t.Name, Artist: t.Artist, Album: t.Album}
	}
	return out
}

func (s *Server) checkCount(w http.ResponseWriter, count int) bool {
	if count > s.cfg.MaxCount {
		respondError(w, http.StatusBadRequest, "INVALID_COUNT", fmt.Sprintf("count must not exceed %d", s.cfg.MaxCount))
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if !s.checkCount(w, req.Count) {
		return
	}

	res, err := s.rec.Recommend(r.Context(), engine.Query{Vibe: req.Vibe, Exclude: req.Exclude, Count: req.Count})
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, recommendResponse{Tracks: toJSON(res.Recommendations), Searches: res.Searches})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if !s.checkCount(w, req.Count) {
		return
	}

	sess := session.New()
	out, err := s.curator.Create(r.Context(), sess, req.Vibe, req.Count)
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	if err := s.sessions.Put(r.Context(), sess); err != nil {
		s.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, sessionResponse{Session: sess, Added: toJSON(out.Added), NotFound: tracksJSON(out.NotFound)})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{Session: sess, Added: []trackJSON{}, NotFound: []trackJSON{}})
}

func (s *Server) handleRefine(w http.ResponseWriter, r *http.Request) {
	var req refineRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if !s.checkCount(w, req.Count) {
		return
	}

	id := chi.URLParam(r, "id")
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	out, err := s.curator.Refine(r.Context(), sess, req.Text, req.Count)
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	if err := s.sessions.Put(r.Context(), sess); err != nil {
		s.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{Session: sess, Added: toJSON(out.Added), NotFound: tracksJSON(out.NotFound)})
}

func (s *Server) handleRemoveTrack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	if err := s.curator.Remove(r.Context(), sess, chi.URLParam(r, "trackID")); err != nil {
		s.respondFailure(w, r, err)
		return
	}
	if err := s.sessions.Put(r.Context(), sess); err != nil {
		s.respondFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteSession resets and forgets the session. The remote playlist stays.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	s.curator.Reset(sess)
	if err := s.sessions.Delete(r.Context(), id); err != nil {
		s.respondFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
