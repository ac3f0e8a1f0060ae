package domain

import (
	"strings"
	"unicode/utf8"
)

// MaxHintLength bounds the optional free-text hint, in characters.
const MaxHintLength = 150

// PhotoSource carries the subject photo. At most one field group is set.
type PhotoSource struct {
	Data     []byte
	Filename string
	MIMEType string

	URL       string
	DataURI   string
	StoredKey string
}

// IsEmpty reports whether no photo was supplied at all.
func (p PhotoSource) IsEmpty() bool {
	return len(p.Data) == 0 && p.Filename == "" && strings.TrimSpace(p.URL) == "" &&
		strings.TrimSpace(p.DataURI) == "" && strings.TrimSpace(p.StoredKey) == ""
}

func (p PhotoSource) variants() int {
	n := 0
	if len(p.Data) > 0 || p.Filename != "" {
		n++
	}
	for _, v := range []string{p.URL, p.DataURI, p.StoredKey} {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}

// GenerationRequest is one user submission. It is not modified after Validate.
type GenerationRequest struct {
	RequesterID string
	Photo       PhotoSource
	Garment     StyleAsset
	Backdrop    StyleAsset
	Hint        string
}

// Validate checks the request shape. An empty photo is allowed here; the
// service fills it from the requester's stored photos.
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.RequesterID) == "" {
		return Invalid("requester id is required")
	}
	if strings.ContainsAny(r.RequesterID, `/\`) {
		return Invalid("requester id must not contain path separators")
	}
	if r.Photo.variants() > 1 {
		return Invalid("photo must be exactly one of upload, url, data uri or stored key")
	}
	if r.Photo.Filename != "" && len(r.Photo.Data) == 0 {
		return Invalid("uploaded photo is empty")
	}
	if strings.TrimSpace(r.Garment.ID) == "" {
		return Invalid("garment selection is required")
	}
	if strings.TrimSpace(r.Backdrop.ID) == "" {
		return Invalid("backdrop selection is required")
	}
	if utf8.RuneCountInString(r.Hint) > MaxHintLength {
		return Invalid("hint must be at most %d characters", MaxHintLength)
	}
	return nil
}
