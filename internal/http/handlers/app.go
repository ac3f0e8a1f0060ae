package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"avatar-server/internal/domain"
	"avatar-server/internal/infra"
)

// Generator runs one avatar generation.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (domain.Result, error)
}

// StyleCatalog lists and resolves garment and backdrop selections.
type StyleCatalog interface {
	List(ctx context.Context, kind domain.StyleKind) ([]domain.StyleAsset, error)
	Lookup(ctx context.Context, kind domain.StyleKind, id string) (domain.StyleAsset, error)
}

// PhotoStore lists and stores a requester's uploaded photos.
type PhotoStore interface {
	StoredPhotos(ctx context.Context, requester string) ([]string, error)
	StorePhoto(ctx context.Context, requester string, src domain.PhotoSource) (string, error)
}

// BackendPinger probes the workflow backend.
type BackendPinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	Generator      Generator
	Catalog        StyleCatalog
	Photos         PhotoStore
	Backend        BackendPinger
	Logger         *infra.Logger
	BackendAddress string
	MaxUploadBytes int64
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) logger() *infra.Logger {
	if a.Logger == nil {
		return infra.NopLogger()
	}
	return a.Logger
}
