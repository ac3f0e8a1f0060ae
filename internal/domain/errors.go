package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failure so callers can react without parsing messages.
type ErrorKind string

const (
	KindInvalidRequest   ErrorKind = "invalid_request"
	KindAssetResolution  ErrorKind = "asset_resolution"
	KindTransport        ErrorKind = "transport"
	KindRemoteValidation ErrorKind = "remote_validation"
	KindExecution        ErrorKind = "execution"
	KindTimeout          ErrorKind = "timeout"
	KindMissingOutput    ErrorKind = "missing_output"
	KindPrompt           ErrorKind = "prompt"
	KindCanceled         ErrorKind = "canceled"
	KindInternal         ErrorKind = "internal"
)

var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrAssetResolution  = errors.New("asset resolution failed")
	ErrTransport        = errors.New("backend unreachable")
	ErrRemoteValidation = errors.New("backend rejected workflow")
	ErrExecution        = errors.New("backend execution failed")
	ErrTimeout          = errors.New("generation timed out")
	ErrMissingOutput    = errors.New("no output image produced")
	ErrPrompt           = errors.New("prompt synthesis failed")
	ErrCanceled         = errors.New("generation canceled")
)

var kindSentinels = map[ErrorKind]error{
	KindInvalidRequest:   ErrInvalidRequest,
	KindAssetResolution:  ErrAssetResolution,
	KindTransport:        ErrTransport,
	KindRemoteValidation: ErrRemoteValidation,
	KindExecution:        ErrExecution,
	KindTimeout:          ErrTimeout,
	KindMissingOutput:    ErrMissingOutput,
	KindPrompt:           ErrPrompt,
	KindCanceled:         ErrCanceled,
}

// AssetSource tells where an input image was being read from when it failed.
type AssetSource string

const (
	SourceUpload   AssetSource = "upload"
	SourceRemote   AssetSource = "remote"
	SourceEmbedded AssetSource = "embedded"
	SourceLocal    AssetSource = "local"
	SourceStored   AssetSource = "stored"
)

// Error is the single error type surfaced by the generation pipeline.
type Error struct {
	Kind     ErrorKind
	Op       string
	Message  string
	Node     string
	Source   AssetSource
	Addr     string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	msg := e.Message
	if msg == "" {
		if s, ok := kindSentinels[e.Kind]; ok {
			msg = s.Error()
		} else {
			msg = string(e.Kind)
		}
	}
	sb.WriteString(msg)
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	if e.Addr != "" {
		fmt.Fprintf(&sb, " (backend: %s)", e.Addr)
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match an *Error against the sentinel of its kind.
func (e *Error) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && target == s
}

// KindOf extracts the kind of err. Context cancellation maps to KindCanceled.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindInternal
}

// Invalid builds an invalid_request error.
func Invalid(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidRequest, Message: fmt.Sprintf(format, args...)}
}
