package catalog

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"avatar-server/internal/asset"
	"avatar-server/internal/domain"
	"avatar-server/internal/infra"
)

// KindDirs maps each style kind to its folder under the static asset root.
var KindDirs = map[domain.StyleKind]string{
	domain.StyleGarment:  "kimono",
	domain.StyleBackdrop: "background",
}

const scanKey = "scan"

// Directory builds the catalog from image files under the static asset root.
// Files whose id matches a built-in entry keep its name and description.
// Scans are cached for ttl.
type Directory struct {
	root   fs.FS
	cache  *cache.Cache
	logger *infra.Logger
}

func NewDirectory(root fs.FS, ttl time.Duration, logger *infra.Logger) *Directory {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Directory{
		root:   root,
		cache:  cache.New(ttl, 2*ttl),
		logger: logger,
	}
}

func (d *Directory) List(ctx context.Context, kind domain.StyleKind) ([]domain.StyleAsset, error) {
	if cached, ok := d.cache.Get(scanKey); ok {
		return cloneItems(cached.(map[domain.StyleKind][]domain.StyleAsset)[kind]), nil
	}
	scanned, err := d.scan(ctx)
	if err != nil {
		return nil, err
	}
	d.cache.Set(scanKey, scanned, cache.DefaultExpiration)
	return cloneItems(scanned[kind]), nil
}

func (d *Directory) scan(ctx context.Context) (map[domain.StyleKind][]domain.StyleAsset, error) {
	kinds := []domain.StyleKind{domain.StyleGarment, domain.StyleBackdrop}
	results := make([][]domain.StyleAsset, len(kinds))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		eg.Go(func() error {
			items, err := d.scanKind(egCtx, kind)
			if err != nil {
				return err
			}
			results[i] = items
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := make(map[domain.StyleKind][]domain.StyleAsset, len(kinds))
	for i, kind := range kinds {
		out[kind] = results[i]
	}
	d.logger.Debug().
		Int("garments", len(out[domain.StyleGarment])).
		Int("backdrops", len(out[domain.StyleBackdrop])).
		Msg("style directory scanned")
	return out, nil
}

func (d *Directory) scanKind(ctx context.Context, kind domain.StyleKind) ([]domain.StyleAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := KindDirs[kind]
	entries, err := fs.ReadDir(d.root, dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	known := make(map[string]domain.StyleAsset)
	for _, item := range StaticItems(kind) {
		known[item.ID] = item
	}
	title := cases.Title(language.English)

	var items []domain.StyleAsset
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if _, ok := asset.MIMEFromFilename(e.Name()); !ok {
			continue
		}
		id := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		item, ok := known[id]
		if !ok {
			words := strings.Join(strings.FieldsFunc(id, func(r rune) bool { return r == '_' || r == '-' }), " ")
			item = domain.StyleAsset{
				ID:          id,
				DisplayName: title.String(words),
				Description: words,
			}
		}
		item.Kind = kind
		item.LocalPath = path.Join(dir, e.Name())
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func cloneItems(items []domain.StyleAsset) []domain.StyleAsset {
	out := make([]domain.StyleAsset, len(items))
	copy(out, items)
	return out
}
