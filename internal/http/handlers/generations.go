package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"avatar-server/internal/domain"
)

const defaultMaxUploadBytes = 10 << 20

type photoPayload struct {
	URL       string `json:"url"`
	DataURI   string `json:"data_uri"`
	StoredKey string `json:"stored_key"`
}

type generationPayload struct {
	RequesterID string       `json:"requester_id"`
	Photo       photoPayload `json:"photo"`
	GarmentID   string       `json:"garment_id"`
	BackdropID  string       `json:"backdrop_id"`
	Hint        string       `json:"hint"`
}

// GenerationsCreate accepts a JSON body or a multipart form with a "photo"
// file and blocks until the avatar is ready.
func (a *App) GenerationsCreate(w http.ResponseWriter, r *http.Request) {
	limit := a.MaxUploadBytes
	if limit <= 0 {
		limit = defaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var (
		payload generationPayload
		upload  domain.PhotoSource
		err     error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		payload, upload, err = readMultipart(r, limit)
	} else {
		if decodeErr := json.NewDecoder(r.Body).Decode(&payload); decodeErr != nil {
			err = decodeErr
			var tooLarge *http.MaxBytesError
			if !errors.As(decodeErr, &tooLarge) {
				err = domain.Invalid("invalid json payload: %v", decodeErr)
			}
		}
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = domain.Invalid("request body exceeds %d bytes", limit)
		}
		a.error(w, r, err)
		return
	}

	garment, err := a.Catalog.Lookup(r.Context(), domain.StyleGarment, payload.GarmentID)
	if err != nil {
		a.error(w, r, err)
		return
	}
	backdrop, err := a.Catalog.Lookup(r.Context(), domain.StyleBackdrop, payload.BackdropID)
	if err != nil {
		a.error(w, r, err)
		return
	}

	upload.URL = payload.Photo.URL
	upload.DataURI = payload.Photo.DataURI
	upload.StoredKey = payload.Photo.StoredKey
	req := domain.GenerationRequest{
		RequesterID: strings.TrimSpace(payload.RequesterID),
		Photo:       upload,
		Garment:     garment,
		Backdrop:    backdrop,
		Hint:        strings.TrimSpace(payload.Hint),
	}
	result, err := a.Generator.Generate(r.Context(), req)
	if err != nil {
		a.error(w, r, err)
		return
	}
	a.json(w, http.StatusOK, result)
}

func readMultipart(r *http.Request, limit int64) (generationPayload, domain.PhotoSource, error) {
	if err := parseMultipart(r, limit); err != nil {
		return generationPayload{}, domain.PhotoSource{}, err
	}
	payload := generationPayload{
		RequesterID: r.FormValue("requester_id"),
		GarmentID:   r.FormValue("garment_id"),
		BackdropID:  r.FormValue("backdrop_id"),
		Hint:        r.FormValue("hint"),
		Photo: photoPayload{
			URL:       r.FormValue("photo_url"),
			DataURI:   r.FormValue("photo_data_uri"),
			StoredKey: r.FormValue("stored_key"),
		},
	}
	src, _, err := readPhotoFile(r)
	return payload, src, err
}

// parseMultipart parses a multipart body already wrapped in a MaxBytesReader.
func parseMultipart(r *http.Request, limit int64) error {
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.Invalid("request body exceeds %d bytes", limit)
		}
		return domain.Invalid("invalid multipart form: %v", err)
	}
	return nil
}

// readPhotoFile reads the "photo" file part. ok is false when none was sent.
func readPhotoFile(r *http.Request) (src domain.PhotoSource, ok bool, err error) {
	file, header, err := r.FormFile("photo")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return src, false, nil
	case err != nil:
		return src, false, domain.Invalid("read photo: %v", err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return src, false, domain.Invalid("read photo: %v", err)
	}
	src.Data = data
	src.Filename = header.Filename
	src.MIMEType = header.Header.Get("Content-Type")
	if len(data) == 0 {
		return src, true, domain.Invalid("uploaded photo is empty")
	}
	return src, true, nil
}
