package comfy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"avatar-server/internal/workflow"
)

// UploadResult is the backend's record of an uploaded image.
type UploadResult struct {
	Name      string `json:"name"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// WorkflowName is the value a LoadImage node expects for this upload.
func (u UploadResult) WorkflowName() string {
	if sub := strings.Trim(u.Subfolder, "/"); sub != "" {
		return sub + "/" + u.Name
	}
	return u.Name
}

type queueRequest struct {
	Prompt   workflow.Graph `json:"prompt"`
	ClientID string         `json:"client_id"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details string `json:"details"`
}

type queueResponse struct {
	PromptID   string          `json:"prompt_id"`
	Number     int             `json:"number"`
	NodeErrors json.RawMessage `json:"node_errors"`
	Error      *apiError       `json:"error"`
}

// QueueResult identifies a job accepted by the backend.
type QueueResult struct {
	PromptID string
	Number   int
}

// NodeError is the backend's validation report for one node.
type NodeError struct {
	Errors    []apiError `json:"errors"`
	ClassType string     `json:"class_type"`
}

func (n NodeError) summary() string {
	if len(n.Errors) == 0 {
		return "unknown node error"
	}
	first := n.Errors[0]
	msg := strings.TrimSpace(first.Message)
	if msg == "" {
		msg = first.Type
	}
	if d := strings.TrimSpace(first.Details); d != "" {
		msg += " (" + d + ")"
	}
	return msg
}

// firstNodeError returns the first entry of a node_errors object in document
// order. ok is false for null, missing or empty objects.
func firstNodeError(raw json.RawMessage) (key string, nodeErr NodeError, ok bool, err error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", NodeError{}, false, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return "", NodeError{}, false, err
	}
	if delim, isDelim := tok.(json.Delim); !isDelim || delim != '{' {
		return "", NodeError{}, false, nil
	}
	if !dec.More() {
		return "", NodeError{}, false, nil
	}
	tok, err = dec.Token()
	if err != nil {
		return "", NodeError{}, false, err
	}
	key, _ = tok.(string)
	if err := dec.Decode(&nodeErr); err != nil {
		// keep the node key even if the detail has an unexpected shape
		return key, NodeError{}, true, nil
	}
	return key, nodeErr, true, nil
}

// ImageRef addresses one artifact on the backend.
type ImageRef struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// NodeOutput is what a single node produced.
type NodeOutput struct {
	Images []ImageRef `json:"images"`
}

// StatusMessage is one [type, data] pair from the execution log.
type StatusMessage struct {
	Type string
	Data json.RawMessage
}

func (m *StatusMessage) UnmarshalJSON(b []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("status message: %w", err)
	}
	if len(pair) > 0 {
		if err := json.Unmarshal(pair[0], &m.Type); err != nil {
			return fmt.Errorf("status message type: %w", err)
		}
	}
	if len(pair) > 1 {
		m.Data = pair[1]
	}
	return nil
}

// Status is the execution status block of a history entry.
type Status struct {
	StatusStr string          `json:"status_str"`
	Completed bool            `json:"completed"`
	Messages  []StatusMessage `json:"messages"`
}

// Failed reports an explicit execution error.
func (s Status) Failed() bool {
	return s.StatusStr == "error"
}

type messageData struct {
	Message          string `json:"message"`
	ExceptionMessage string `json:"exception_message"`
	ExceptionType    string `json:"exception_type"`
	NodeID           string `json:"node_id"`
	NodeType         string `json:"node_type"`
}

// Diagnostics joins every message of the execution log, in order, into one
// readable line.
func (s Status) Diagnostics() string {
	var parts []string
	for _, m := range s.Messages {
		if text := describeMessage(m); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "unknown execution error"
	}
	return strings.Join(parts, "; ")
}

func describeMessage(m StatusMessage) string {
	raw := bytes.TrimSpace(m.Data)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err == nil {
		raw = compact.Bytes()
	}
	var d messageData
	if err := json.Unmarshal(raw, &d); err != nil {
		return string(raw)
	}
	switch {
	case d.Message != "":
		return d.Message
	case d.ExceptionMessage != "":
		msg := strings.TrimSpace(d.ExceptionMessage)
		if d.NodeID != "" {
			msg = fmt.Sprintf("node %s (%s): %s", d.NodeID, d.NodeType, msg)
		}
		return msg
	default:
		return string(raw)
	}
}

// HistoryEntry is the backend's record of one job.
type HistoryEntry struct {
	Status  Status                `json:"status"`
	Outputs map[string]NodeOutput `json:"outputs"`
}
