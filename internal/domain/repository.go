package domain

import "context"

// CatalogRepository defines persistence for catalog items. The underlying
// table is shared with the catalog admin tooling, so the repository sticks
// to the read/write contract and nothing else.
type CatalogRepository interface {
	Create(ctx context.Context, item *CatalogItem) (string, error)
	List(ctx context.Context) ([]CatalogItem, error)
	Delete(ctx context.Context, id string) error
}
