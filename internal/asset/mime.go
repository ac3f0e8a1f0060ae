package asset

import (
	"mime"
	"net/http"
	"path"
	"strings"
)

// DefaultMIMEType is assumed when nothing better is known.
const DefaultMIMEType = "image/png"

var extTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
}

var typeExts = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// MIMEFromFilename maps a known image extension to its type.
func MIMEFromFilename(name string) (string, bool) {
	t, ok := extTypes[strings.ToLower(path.Ext(name))]
	return t, ok
}

// MIMEForOutput names the type of a backend artifact, defaulting to PNG.
func MIMEForOutput(name string) string {
	if t, ok := MIMEFromFilename(name); ok {
		return t
	}
	return DefaultMIMEType
}

// ExtForMIME returns the file extension for an image type, without the dot.
func ExtForMIME(mimeType string) string {
	if ext, ok := typeExts[normalizeType(mimeType)]; ok {
		return ext
	}
	return "png"
}

// DetectMIME picks the first usable of: the supplied type, the filename
// extension, content sniffing. Non-image answers are ignored.
func DetectMIME(supplied, filename string, data []byte) string {
	if t := normalizeType(supplied); isImage(t) {
		return t
	}
	if t, ok := MIMEFromFilename(filename); ok {
		return t
	}
	if len(data) > 0 {
		if t := normalizeType(http.DetectContentType(data)); isImage(t) {
			return t
		}
	}
	return DefaultMIMEType
}

func normalizeType(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if t, _, err := mime.ParseMediaType(v); err == nil {
		return strings.ToLower(t)
	}
	return strings.ToLower(v)
}

func isImage(t string) bool {
	return strings.HasPrefix(t, "image/")
}
