package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avatar-server/internal/domain"
)

type fakeRows struct {
	data [][]any
	idx  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.data[r.idx-1], nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d dest for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		p, ok := d.(*string)
		if !ok {
			return fmt.Errorf("scan: column %d is not a string target", i)
		}
		*p = row[i].(string)
	}
	return nil
}

type fakeDB struct {
	rows    [][]any
	execs   []string
	args    [][]any
	lastSQL string
	failOn  string
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if f.failOn != "" && strings.Contains(sql, f.failOn) {
		return pgconn.CommandTag{}, errors.New("exec failed")
	}
	f.execs = append(f.execs, sql)
	f.args = append(f.args, args)
	return pgconn.CommandTag{}, nil
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.lastSQL = sql
	f.args = append(f.args, args)
	return &fakeRows{data: f.rows}, nil
}

func TestStyleRepositoryList(t *testing.T) {
	fake := &fakeDB{rows: [][]any{
		{"k1", "garment", "Classic Sakura", "kimono/k1.png", "pink kimono", "pink sakura kimono"},
		{"k2", "garment", "Blue Wave", "kimono/k2.png", "blue kimono", ""},
	}}
	items, err := NewStyleRepository(fake).List(context.Background(), domain.StyleGarment)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, domain.StyleAsset{
		ID: "k1", Kind: domain.StyleGarment, DisplayName: "Classic Sakura",
		LocalPath: "kimono/k1.png", Description: "pink kimono", AIHint: "pink sakura kimono",
	}, items[0])
	assert.Contains(t, fake.lastSQL, "from style_assets")
	assert.Equal(t, []any{"garment"}, fake.args[0])
}

func TestStyleRepositorySeed(t *testing.T) {
	fake := &fakeDB{}
	err := NewStyleRepository(fake).Seed(context.Background(), []domain.StyleAsset{
		{ID: "b1", Kind: domain.StyleBackdrop, DisplayName: "Park", LocalPath: "background/b1.png"},
	})
	require.NoError(t, err)
	require.Len(t, fake.execs, 2)
	assert.Contains(t, fake.execs[0], "create table if not exists style_assets")
	assert.Equal(t, "b1", fake.args[1][0])
	assert.Equal(t, "backdrop", fake.args[1][1])

	fake = &fakeDB{failOn: "insert into style_assets"}
	err = NewStyleRepository(fake).Seed(context.Background(), []domain.StyleAsset{{ID: "b1", Kind: domain.StyleBackdrop}})
	assert.ErrorContains(t, err, "upsert backdrop b1")
}
