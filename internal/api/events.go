package api

import (
	"net/http"

	"github.com/gin-contrib/sse"
)

// broadcastEvents streams session events as server-sent events until
// the client goes away.
func (a *ApiManagerCtx) broadcastEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	listener := a.broadcast.Subscribe()
	defer a.broadcast.Unsubscribe(listener)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-listener.C:
			if !ok {
				return
			}

			err := sse.Encode(w, sse.Event{
				Event: string(event.Type),
				Data:  event,
			})
			if err != nil {
				a.logger.Debug().Err(err).Msg("unable to write event, closing stream")
				return
			}
			flusher.Flush()
		}
	}
}
