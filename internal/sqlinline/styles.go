package sqlinline

const QCreateStyleAssets = `--sql 3b0e6f5c-2a41-4b7e-9d0c-5f1f0f6e8a21
create table if not exists style_assets (
  id text not null,
  kind text not null check (kind in ('garment', 'backdrop')),
  display_name text not null,
  local_path text not null,
  description text not null default '',
  ai_hint text,
  primary key (kind, id)
);
`

const QListStyleAssetsByKind = `--sql 8c4d2e71-6a09-4f3b-b5e2-1d7a9c3f0b64
select id, kind, display_name, local_path, description, coalesce(ai_hint, '')
from style_assets
where kind = $1
order by id asc;
`

const QUpsertStyleAsset = `--sql e51f9a3d-7c28-4b06-a8d4-92c0b6e1f7a5
insert into style_assets(id, kind, display_name, local_path, description, ai_hint)
values ($1, $2, $3, $4, $5, nullif($6, ''))
on conflict (kind, id) do update set
  display_name = excluded.display_name,
  local_path = excluded.local_path,
  description = excluded.description,
  ai_hint = excluded.ai_hint;
`
