package handlers

import (
	"net/http"
	"strings"

	"avatar-server/internal/domain"
)

func (a *App) PhotosList(w http.ResponseWriter, r *http.Request) {
	requester := strings.TrimSpace(r.URL.Query().Get("requester"))
	if requester == "" || strings.ContainsAny(requester, `/\`) {
		a.error(w, r, domain.Invalid("requester query parameter is required"))
		return
	}
	keys, err := a.Photos.StoredPhotos(r.Context(), requester)
	if err != nil {
		a.error(w, r, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	a.json(w, http.StatusOK, map[string]any{"requester": requester, "photos": keys})
}

// PhotosCreate stores a multipart "photo" for "requester" and returns its key.
func (a *App) PhotosCreate(w http.ResponseWriter, r *http.Request) {
	limit := a.MaxUploadBytes
	if limit <= 0 {
		limit = defaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := parseMultipart(r, limit); err != nil {
		a.error(w, r, err)
		return
	}
	src, ok, err := readPhotoFile(r)
	if err != nil {
		a.error(w, r, err)
		return
	}
	if !ok {
		a.error(w, r, domain.Invalid("photo file is required"))
		return
	}
	requester := strings.TrimSpace(r.FormValue("requester"))
	key, err := a.Photos.StorePhoto(r.Context(), requester, src)
	if err != nil {
		a.error(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, map[string]string{"requester": requester, "key": key})
}
