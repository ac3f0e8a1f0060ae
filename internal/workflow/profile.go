package workflow

// Role names one value the binder writes into the graph.
type Role string

const (
	RoleSubjectImage   Role = "subject_image"
	RoleGarmentImage   Role = "garment_image"
	RoleBackdropImage  Role = "backdrop_image"
	RolePositivePrompt Role = "positive_prompt"
	RoleDebugText      Role = "debug_text"
	RoleSeed           Role = "seed"
	RoleFilenamePrefix Role = "filename_prefix"
)

// Roles lists every bindable role in binding order.
var Roles = []Role{
	RoleSubjectImage,
	RoleGarmentImage,
	RoleBackdropImage,
	RolePositivePrompt,
	RoleDebugText,
	RoleSeed,
	RoleFilenamePrefix,
}

// Target is the node input a role writes to.
type Target struct {
	NodeKey string `json:"node"`
	Param   string `json:"param"`
}

// Profile pairs a template with its role table and output preference.
type Profile struct {
	Targets map[Role]Target `json:"targets"`
	// OutputNodes is tried in order when picking the result image.
	OutputNodes []string `json:"output_nodes"`
}

// DefaultProfile matches the embedded avatar template.
func DefaultProfile() Profile {
	return Profile{
		Targets: map[Role]Target{
			RoleSubjectImage:   {NodeKey: "88", Param: "image"},
			RoleGarmentImage:   {NodeKey: "39", Param: "image"},
			RoleBackdropImage:  {NodeKey: "47", Param: "image"},
			RolePositivePrompt: {NodeKey: "9", Param: "text"},
			RoleDebugText:      {NodeKey: "80", Param: "text"},
			RoleSeed:           {NodeKey: "99", Param: "seed"},
			RoleFilenamePrefix: {NodeKey: "101", Param: "filename_prefix"},
		},
		OutputNodes: []string{"101", "17"},
	}
}

// Gap is a role or output node the template cannot serve.
type Gap struct {
	Role    Role
	NodeKey string
	Reason  string
}

// Validate reports every profile entry the template does not contain.
func (p Profile) Validate(g Graph) []Gap {
	var gaps []Gap
	for _, role := range Roles {
		target, ok := p.Targets[role]
		if !ok {
			gaps = append(gaps, Gap{Role: role, Reason: "role has no target"})
			continue
		}
		node, ok := g[target.NodeKey]
		if !ok {
			gaps = append(gaps, Gap{Role: role, NodeKey: target.NodeKey, Reason: "node missing from template"})
			continue
		}
		if _, ok := node.Inputs[target.Param]; !ok {
			gaps = append(gaps, Gap{Role: role, NodeKey: target.NodeKey, Reason: "input " + target.Param + " missing"})
		}
	}
	for _, key := range p.OutputNodes {
		if _, ok := g[key]; !ok {
			gaps = append(gaps, Gap{NodeKey: key, Reason: "output node missing from template"})
		}
	}
	return gaps
}
