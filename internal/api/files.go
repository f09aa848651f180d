package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/m1k1o/go-rtpcast/pkg/media"
)

type selectRequest struct {
	Name string `json:"name"`
}

type selectReply struct {
	// nil when the selection was canceled
	Path *string `json:"path"`
}

func (a *ApiManagerCtx) Files(r chi.Router) {
	r.Get("/", a.listFiles)
	r.Post("/select", a.selectFile)
	r.Get("/probe", a.probeFile)
}

func (a *ApiManagerCtx) listFiles(w http.ResponseWriter, r *http.Request) {
	library, _ := a.files()

	files, err := library.List()
	if errors.Is(err, fs.ErrNotExist) {
		a.logger.Debug().Str("dir", library.Dir()).Msg("media directory does not exist")
		files = []media.File{}
	} else if err != nil {
		a.logger.Warn().Err(err).Msg("unable to list media files")
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, files)
}

func (a *ApiManagerCtx) selectFile(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	library, _ := a.files()

	path, ok, err := library.Select(req.Name)
	if err != nil {
		writeError(w, fileErrorCode(err), err)
		return
	}

	reply := selectReply{}
	if ok {
		reply.Path = &path
	}

	writeJSON(w, http.StatusOK, reply)
}

func (a *ApiManagerCtx) probeFile(w http.ResponseWriter, r *http.Request) {
	library, ffprobe := a.files()

	path, ok, err := library.Select(r.URL.Query().Get("name"))
	if err != nil {
		writeError(w, fileErrorCode(err), err)
		return
	}

	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("missing file name"))
		return
	}

	probe, err := media.Probe(r.Context(), ffprobe, path)
	if err != nil {
		a.logger.Warn().Err(err).Str("path", path).Msg("unable to probe media file")
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, probe)
}

func fileErrorCode(err error) int {
	switch {
	case errors.Is(err, media.ErrOutsideLibrary), errors.Is(err, media.ErrUnsupportedFile):
		return http.StatusBadRequest
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
