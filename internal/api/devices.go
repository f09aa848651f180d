package api

import (
	"net/http"
)

func (a *ApiManagerCtx) listDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := a.deviceLister().List(r.Context())
	if err != nil {
		a.logger.Warn().Err(err).Msg("unable to list audio devices")
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, devices)
}
