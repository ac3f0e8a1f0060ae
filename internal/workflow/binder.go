package workflow

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sort"
	"time"

	"avatar-server/internal/infra"
)

// OutputPrefixBase starts every output filename the backend writes.
const OutputPrefixBase = "SakuraAvatar"

// Bindings maps node key to parameter name to the value to write.
type Bindings map[string]map[string]any

// Set records one value, creating the node entry when needed.
func (b Bindings) Set(nodeKey, param string, value any) {
	if b[nodeKey] == nil {
		b[nodeKey] = map[string]any{}
	}
	b[nodeKey][param] = value
}

// Apply clones tmpl and writes the bindings into the clone. Node keys missing
// from the template are skipped and returned in sorted order.
func Apply(tmpl Graph, b Bindings) (Graph, []string) {
	out := tmpl.Clone()
	var missing []string
	for _, key := range b.keys() {
		node, ok := out[key]
		if !ok {
			missing = append(missing, key)
			continue
		}
		if node.Inputs == nil {
			node.Inputs = map[string]any{}
		}
		for param, value := range b[key] {
			node.Inputs[param] = cloneValue(value)
		}
		out[key] = node
	}
	return out, missing
}

func (b Bindings) keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Values are the per-request inputs the binder writes.
type Values struct {
	SubjectImage   string
	GarmentImage   string
	BackdropImage  string
	Prompt         string
	Seed           uint32
	FilenamePrefix string
}

// Binder turns the shared template into a per-request graph.
type Binder struct {
	template Graph
	profile  Profile
	logger   *infra.Logger
}

// NewBinder keeps a private copy of the template so later mutation by the
// caller cannot leak into requests.
func NewBinder(template Graph, profile Profile, logger *infra.Logger) *Binder {
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Binder{template: template.Clone(), profile: profile, logger: logger}
}

// Profile returns the role table the binder was built with.
func (b *Binder) Profile() Profile { return b.profile }

// Validate logs and returns the profile gaps against the template.
func (b *Binder) Validate() []Gap {
	gaps := b.profile.Validate(b.template)
	for _, gap := range gaps {
		b.logger.Warn().
			Str("role", string(gap.Role)).
			Str("node", gap.NodeKey).
			Str("reason", gap.Reason).
			Msg("workflow: template gap")
	}
	return gaps
}

// Bind produces a fresh graph for one request. Roles whose node is absent are
// skipped with a warning; whether the graph still runs is up to the backend.
func (b *Binder) Bind(v Values) (Graph, []Gap) {
	values := map[Role]any{
		RoleSubjectImage:   v.SubjectImage,
		RoleGarmentImage:   v.GarmentImage,
		RoleBackdropImage:  v.BackdropImage,
		RolePositivePrompt: v.Prompt,
		RoleDebugText:      "Generated Prompt: " + v.Prompt,
		RoleSeed:           v.Seed,
		RoleFilenamePrefix: v.FilenamePrefix,
	}
	bindings := Bindings{}
	nodeRoles := map[string][]Role{}
	var gaps []Gap
	for _, role := range Roles {
		target, ok := b.profile.Targets[role]
		if !ok {
			gaps = append(gaps, Gap{Role: role, Reason: "role has no target"})
			continue
		}
		bindings.Set(target.NodeKey, target.Param, values[role])
		nodeRoles[target.NodeKey] = append(nodeRoles[target.NodeKey], role)
	}
	graph, missing := Apply(b.template, bindings)
	for _, key := range missing {
		for _, role := range nodeRoles[key] {
			gaps = append(gaps, Gap{Role: role, NodeKey: key, Reason: "node missing from template"})
		}
	}
	for _, gap := range gaps {
		b.logger.Warn().
			Str("role", string(gap.Role)).
			Str("node", gap.NodeKey).
			Msg("workflow: binding skipped")
	}
	return graph, gaps
}

// NewSeed draws a uniformly random 32-bit seed.
func NewSeed() (uint32, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("workflow: draw seed: %w", err)
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// OutputPrefix names the files the backend saves for one requester.
func OutputPrefix(requesterID string, now time.Time) string {
	return fmt.Sprintf("%s_%s_%d", OutputPrefixBase, requesterID, now.UnixMilli())
}
