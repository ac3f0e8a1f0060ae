package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"avatar-server/internal/domain"
)

var catalogKinds = map[string]domain.StyleKind{
	"garments":  domain.StyleGarment,
	"backdrops": domain.StyleBackdrop,
}

func (a *App) CatalogList(w http.ResponseWriter, r *http.Request) {
	kind, ok := catalogKinds[chi.URLParam(r, "kind")]
	if !ok {
		a.error(w, r, domain.Invalid("unknown catalog %q", chi.URLParam(r, "kind")))
		return
	}
	items, err := a.Catalog.List(r.Context(), kind)
	if err != nil {
		a.error(w, r, err)
		return
	}
	if items == nil {
		items = []domain.StyleAsset{}
	}
	a.json(w, http.StatusOK, map[string]any{"kind": kind, "items": items})
}
