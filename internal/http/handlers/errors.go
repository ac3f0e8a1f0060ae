package handlers

import (
	"errors"
	"net/http"

	"avatar-server/internal/domain"
	"avatar-server/internal/middleware"
)

// statusClientClosedRequest is the de facto code for a caller that went away.
const statusClientClosedRequest = 499

var kindStatus = map[domain.ErrorKind]int{
	domain.KindInvalidRequest:   http.StatusBadRequest,
	domain.KindAssetResolution:  http.StatusUnprocessableEntity,
	domain.KindRemoteValidation: http.StatusUnprocessableEntity,
	domain.KindPrompt:           http.StatusBadGateway,
	domain.KindTransport:        http.StatusBadGateway,
	domain.KindExecution:        http.StatusBadGateway,
	domain.KindMissingOutput:    http.StatusBadGateway,
	domain.KindTimeout:          http.StatusGatewayTimeout,
	domain.KindCanceled:         statusClientClosedRequest,
}

type errorBody struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Node      string `json:"node,omitempty"`
	Source    string `json:"source,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	if status, ok := kindStatus[domain.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func (a *App) error(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	kind := domain.KindOf(err)
	if kind == "" {
		kind = domain.KindInternal
	}
	body := errorBody{
		Kind:      string(kind),
		Message:   err.Error(),
		RequestID: middleware.RequestIDFromContext(r.Context()),
	}
	var de *domain.Error
	if errors.As(err, &de) {
		body.Node = de.Node
		body.Source = string(de.Source)
	}
	if status == http.StatusInternalServerError {
		a.logger().Error().Err(err).Str("request_id", body.RequestID).Msg("unhandled error")
		body.Message = "internal error"
	}
	a.json(w, status, errorEnvelope{Error: body})
}
