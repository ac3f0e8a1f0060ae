package catalog

import (
	"context"
	"fmt"
	"strings"

	"avatar-server/internal/domain"
	"avatar-server/internal/infra"
)

// Source supplies the catalogued styles of one kind in display order.
type Source interface {
	List(ctx context.Context, kind domain.StyleKind) ([]domain.StyleAsset, error)
}

// Catalog resolves user selections against a Source.
type Catalog struct {
	src    Source
	logger *infra.Logger
}

func New(src Source, logger *infra.Logger) *Catalog {
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Catalog{src: src, logger: logger}
}

// List returns the styles of kind.
func (c *Catalog) List(ctx context.Context, kind domain.StyleKind) ([]domain.StyleAsset, error) {
	if kind != domain.StyleGarment && kind != domain.StyleBackdrop {
		return nil, domain.Invalid("unknown style kind %q", kind)
	}
	items, err := c.src.List(ctx, kind)
	if err != nil {
		c.logger.Error().Err(err).Str("kind", string(kind)).Msg("catalog listing failed")
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return items, nil
}

// Lookup finds one style by id. Unknown ids are invalid requests.
func (c *Catalog) Lookup(ctx context.Context, kind domain.StyleKind, id string) (domain.StyleAsset, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.StyleAsset{}, domain.Invalid("%s selection is required", kind)
	}
	items, err := c.List(ctx, kind)
	if err != nil {
		return domain.StyleAsset{}, err
	}
	for _, item := range items {
		if item.ID == id {
			return item, nil
		}
	}
	return domain.StyleAsset{}, domain.Invalid("unknown %s %q", kind, id)
}
