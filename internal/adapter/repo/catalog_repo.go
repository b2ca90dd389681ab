package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

// CatalogRepositoryPG implements domain.CatalogRepository using PostgreSQL.
type CatalogRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewCatalogRepository constructs a new catalog repository instance.
func NewCatalogRepository(sql infra.SQLExecutor) *CatalogRepositoryPG {
	return &CatalogRepositoryPG{sql: sql}
}

// Create persists one catalog item and returns the generated id.
func (r *CatalogRepositoryPG) Create(ctx context.Context, item *domain.CatalogItem) (string, error) {
	if item == nil || strings.TrimSpace(item.Name) == "" || strings.TrimSpace(item.ImageURL) == "" {
		return "", domain.ErrInvalidInput
	}
	row := r.sql.QueryRow(ctx, sqlinline.QInsertCatalogItem, item.Name, item.Category, item.ImageURL)
	var id string
	if err := row.Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

// List returns every catalog item, newest first.
func (r *CatalogRepositoryPG) List(ctx context.Context) ([]domain.CatalogItem, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListCatalogItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.CatalogItem
	for rows.Next() {
		var item domain.CatalogItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Category, &item.ImageURL, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Delete removes one catalog item; ErrNotFound when the id is unknown. The
// id is validated up front because the query casts it to uuid and a
// malformed value would otherwise surface as a database error.
func (r *CatalogRepositoryPG) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QDeleteCatalogItem, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.CatalogRepository = (*CatalogRepositoryPG)(nil)
