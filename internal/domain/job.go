package domain

// JobStatus enumerates the lifecycle of a submitted backend job.
type JobStatus string

const (
	JobStatusSubmitted JobStatus = "submitted"
	JobStatusPolling   JobStatus = "polling"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusTimedOut  JobStatus = "timed_out"
)

// Terminal reports whether no further polling may happen.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusTimedOut:
		return true
	}
	return false
}

// Namespace is the backend storage area an artifact lives in.
type Namespace string

const (
	NamespaceOutput Namespace = "output"
	NamespaceInput  Namespace = "input"
	NamespaceTemp   Namespace = "temp"
)

// OutputArtifact is an image produced by one graph node. Data is filled on fetch.
type OutputArtifact struct {
	NodeKey   string
	Filename  string
	Subfolder string
	Namespace Namespace
	Data      []byte
}

// Job tracks one submitted unit of work for the lifetime of a request.
type Job struct {
	ID       string
	Number   int
	Status   JobStatus
	Attempts int
	Outputs  map[string][]OutputArtifact
	Error    string
}

// Result is what a successful generation hands back to the caller.
type Result struct {
	JobID      string `json:"job_id"`
	Prompt     string `json:"prompt"`
	OutputNode string `json:"output_node"`
	Filename   string `json:"filename"`
	MIMEType   string `json:"mime_type"`
	DataURI    string `json:"image"`
}
