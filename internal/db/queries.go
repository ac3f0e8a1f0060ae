package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"avatar-server/internal/domain"
	"avatar-server/internal/sqlinline"
)

type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// EnsureStyleAssets creates the style catalog table when missing.
func (q *Queries) EnsureStyleAssets(ctx context.Context) error {
	if _, err := q.db.Exec(ctx, sqlinline.QCreateStyleAssets); err != nil {
		return fmt.Errorf("create style_assets: %w", err)
	}
	return nil
}

func (q *Queries) ListStyleAssets(ctx context.Context, kind domain.StyleKind) ([]domain.StyleAsset, error) {
	rows, err := q.db.Query(ctx, sqlinline.QListStyleAssetsByKind, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.StyleAsset
	for rows.Next() {
		var (
			a    domain.StyleAsset
			kind string
		)
		if err := rows.Scan(&a.ID, &kind, &a.DisplayName, &a.LocalPath, &a.Description, &a.AIHint); err != nil {
			return nil, err
		}
		a.Kind = domain.StyleKind(kind)
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *Queries) UpsertStyleAsset(ctx context.Context, a domain.StyleAsset) error {
	_, err := q.db.Exec(ctx, sqlinline.QUpsertStyleAsset, a.ID, string(a.Kind), a.DisplayName, a.LocalPath, a.Description, a.AIHint)
	return err
}
