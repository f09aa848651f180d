package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/m1k1o/go-rtpcast/pkg/broadcast"
)

type broadcastStatus struct {
	Status  broadcast.Status       `json:"status"`
	Session *broadcast.SessionInfo `json:"session,omitempty"`
}

func (a *ApiManagerCtx) Broadcast(r chi.Router) {
	r.Get("/", a.broadcastStatus)
	r.Post("/start", a.startBroadcast)
	r.Post("/stop", a.stopBroadcast)
	r.Get("/events", a.broadcastEvents)
}

func (a *ApiManagerCtx) broadcastStatus(w http.ResponseWriter, r *http.Request) {
	status := broadcastStatus{
		Status: broadcast.StatusIdle,
	}

	if session := a.broadcast.Current(); session != nil {
		info := session.Info()
		status.Status = info.Status
		status.Session = &info
	}

	writeJSON(w, http.StatusOK, status)
}

func (a *ApiManagerCtx) startBroadcast(w http.ResponseWriter, r *http.Request) {
	var config broadcast.Config
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	session, err := a.broadcast.Start(r.Context(), config)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, broadcast.ErrInvalidConfig) {
			code = http.StatusBadRequest
		}

		a.logger.Warn().Err(err).Msg("broadcast could not be started")
		writeError(w, code, err)
		return
	}

	info := session.Info()
	writeJSON(w, http.StatusOK, result{
		Status:  statusSuccess,
		Session: &info,
	})
}

func (a *ApiManagerCtx) stopBroadcast(w http.ResponseWriter, r *http.Request) {
	err := a.broadcast.Stop()

	// nothing to stop is not a failure of the request
	if errors.Is(err, broadcast.ErrNoActiveSession) {
		writeJSON(w, http.StatusOK, result{
			Status:  statusSuccess,
			Message: err.Error(),
		})
		return
	}

	if err != nil {
		a.logger.Warn().Err(err).Msg("broadcast could not be stopped")
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, result{
		Status: statusSuccess,
	})
}
