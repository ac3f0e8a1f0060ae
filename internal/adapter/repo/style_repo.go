package repo

import (
	"context"
	"fmt"

	"avatar-server/internal/db"
	"avatar-server/internal/domain"
)

// StyleRepositoryPG serves the style catalog from the style_assets table.
type StyleRepositoryPG struct {
	q *db.Queries
}

// NewStyleRepository constructs a repository over any pgx connection or pool.
func NewStyleRepository(conn db.DBTX) *StyleRepositoryPG {
	return &StyleRepositoryPG{q: db.New(conn)}
}

// List returns every catalogued style of kind, ordered by id.
func (r *StyleRepositoryPG) List(ctx context.Context, kind domain.StyleKind) ([]domain.StyleAsset, error) {
	items, err := r.q.ListStyleAssets(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("list %s styles: %w", kind, err)
	}
	return items, nil
}

// Seed creates the table if needed and upserts items.
func (r *StyleRepositoryPG) Seed(ctx context.Context, items []domain.StyleAsset) error {
	if err := r.q.EnsureStyleAssets(ctx); err != nil {
		return err
	}
	for _, item := range items {
		if err := r.q.UpsertStyleAsset(ctx, item); err != nil {
			return fmt.Errorf("upsert %s %s: %w", item.Kind, item.ID, err)
		}
	}
	return nil
}
