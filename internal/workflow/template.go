package workflow

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed templates/avatar_api.json
var defaultTemplate []byte

// LoadTemplate reads the workflow template at path, or the embedded default
// when path is empty.
func LoadTemplate(path string) (Graph, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return ParseGraph(defaultTemplate)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("workflow: read template %s: %w", path, err)
	}
	return ParseGraph(data)
}
