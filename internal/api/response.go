package api

import (
	"encoding/json"
	"net/http"

	"github.com/m1k1o/go-rtpcast/pkg/broadcast"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

type result struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Session *broadcast.SessionInfo `json:"session,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	//nolint
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, result{
		Status:  statusError,
		Message: err.Error(),
	})
}
