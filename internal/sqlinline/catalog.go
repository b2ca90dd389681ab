package sqlinline

const QInsertCatalogItem = `--sql 7c1f8a52-3db1-4b0e-9e47-5f9c80a21d36
insert into catalog_items(
  id,
  name,
  category,
  image_url,
  created_at
) values (
  gen_random_uuid(),
  $1::text,
  $2::text,
  $3::text,
  now()
) returning id;
`

const QListCatalogItems = `--sql 2e90b7d4-6a1c-47f3-8d25-c4e1a9f06b58
select
  id,
  name,
  category,
  image_url,
  created_at
from catalog_items
order by created_at desc;
`

const QDeleteCatalogItem = `--sql 914d2c6b-08e5-4f7a-bb39-6d2f57c8a1e0
delete from catalog_items
where id = $1::uuid;
`
