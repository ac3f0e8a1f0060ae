package asset

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var errMalformedDataURI = errors.New("malformed data uri")

// EncodeDataURI renders data as data:<mime>;base64,<payload>.
func EncodeDataURI(mimeType string, data []byte) string {
	if strings.TrimSpace(mimeType) == "" {
		mimeType = DefaultMIMEType
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI parses a base64 data URI and returns its media type and bytes.
func DecodeDataURI(uri string) (string, []byte, error) {
	uri = strings.TrimSpace(uri)
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing data: scheme", errMalformedDataURI)
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing payload separator", errMalformedDataURI)
	}
	params := strings.Split(header, ";")
	mimeType := strings.ToLower(strings.TrimSpace(params[0]))
	base64Encoded := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			base64Encoded = true
		}
	}
	if !base64Encoded {
		return "", nil, fmt.Errorf("%w: only base64 payloads are supported", errMalformedDataURI)
	}
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}
	if !isImage(mimeType) {
		return "", nil, fmt.Errorf("%w: %q is not an image type", errMalformedDataURI, mimeType)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", errMalformedDataURI, err)
		}
	}
	if len(data) == 0 {
		return "", nil, fmt.Errorf("%w: empty payload", errMalformedDataURI)
	}
	return mimeType, data, nil
}
