package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"avatar-server/internal/adapter/repo"
	"avatar-server/internal/catalog"
	"avatar-server/internal/domain"
	"avatar-server/internal/infra"
)

// CatalogListAction prints the styles of one kind.
func CatalogListAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	items, err := appCtx.Components.Catalog.List(ctx, domain.StyleKind(cmd.String("kind")))
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPATH")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", item.ID, item.DisplayName, item.LocalPath)
	}
	return tw.Flush()
}

// CatalogSeedAction writes the built-in catalog into Postgres.
func CatalogSeedAction(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := loadConfig(cmd.String("env"))
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required to seed the catalog")
	}
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	items := append(catalog.StaticItems(domain.StyleGarment), catalog.StaticItems(domain.StyleBackdrop)...)
	if err := repo.NewStyleRepository(pool).Seed(ctx, items); err != nil {
		return err
	}
	logger.Info().Int("items", len(items)).Msg("style catalog seeded")
	return nil
}
