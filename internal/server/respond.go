package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/go-playground/validator/v10"

	"github.com/heavenlydemon269/vibelist/encoder"
	"github.com/heavenlydemon269/vibelist/engine"
	"github.com/heavenlydemon269/vibelist/musicservice"
	"github.com/heavenlydemon269/vibelist/musicservice/spotify"
	"github.com/heavenlydemon269/vibelist/playlist"
	"github.com/heavenlydemon269/vibelist/session"
)

// maxBodyBytes bounds request bodies. Exclusion lists are the largest input.
const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

type errorResponse struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: apiError{Code: code, Message: message}})
}

// decode reads and validates a JSON request body into v.
func decode(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return err
	}
	return validate.Struct(v)
}

// respondFailure maps domain errors to status codes.
func (s *Server) respondFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, engine.ErrInvalidCount):
		status, code = http.StatusBadRequest, "INVALID_COUNT"
	case errors.Is(err, session.ErrNotFound):
		status, code = http.StatusNotFound, "SESSION_NOT_FOUND"
	case errors.Is(err, playlist.ErrTrackNotInPlaylist):
		status, code = http.StatusNotFound, "TRACK_NOT_IN_PLAYLIST"
	case errors.Is(err, musicservice.ErrPlaylistNotFound):
		status, code = http.StatusNotFound, "PLAYLIST_NOT_FOUND"
	case errors.Is(err, session.ErrNoActivePlaylist),
		errors.Is(err, session.ErrPlaylistActive),
		errors.Is(err, session.ErrNotBuilding):
		status, code = http.StatusConflict, "SESSION_STATE"
	case errors.Is(err, encoder.ErrUnavailable), errors.Is(err, spotify.ErrUnavailable):
		status, code = http.StatusServiceUnavailable, "UNAVAILABLE"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "TIMEOUT"
	case errors.Is(err, context.Canceled):
		// client went away
		return
	}

	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		respondError(w, status, code, http.StatusText(status))
		return
	}
	respondError(w, status, code, err.Error())
}
