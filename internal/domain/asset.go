package domain

// StyleKind separates the two style catalogs.
type StyleKind string

const (
	StyleGarment  StyleKind = "garment"
	StyleBackdrop StyleKind = "backdrop"
)

// StyleAsset is a pre-catalogued garment or backdrop image.
type StyleAsset struct {
	ID          string    `json:"id"`
	Kind        StyleKind `json:"kind"`
	DisplayName string    `json:"name"`
	LocalPath   string    `json:"local_path"`
	Description string    `json:"description"`
	AIHint      string    `json:"ai_hint,omitempty"`
}

// AssetRole is the logical slot an uploaded image fills in the workflow.
type AssetRole string

const (
	RoleSubject  AssetRole = "subject"
	RoleGarment  AssetRole = "garment"
	RoleBackdrop AssetRole = "backdrop"
)

// UploadOrder is the deterministic order in which resolved assets are uploaded.
var UploadOrder = []AssetRole{RoleSubject, RoleGarment, RoleBackdrop}

// ResolvedAsset is an input image ready for upload. It is consumed once.
type ResolvedAsset struct {
	Role     AssetRole
	Data     []byte
	MIMEType string
	Filename string
}
