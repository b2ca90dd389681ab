package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"server/internal/domain"
)

type fakeExecutor struct {
	execCalls int
	tag       pgconn.CommandTag
	execErr   error
}

func (f *fakeExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	f.execCalls++
	return f.tag, f.execErr
}

func (f *fakeExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return stubRow{}
}

func (f *fakeExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type stubRow struct{}

func (stubRow) Scan(dest ...any) error { return errors.New("not implemented") }

func TestDeleteRejectsMalformedIDWithoutQuerying(t *testing.T) {
	exec := &fakeExecutor{}
	r := NewCatalogRepository(exec)

	for _, id := range []string{"", "not-a-uuid", "1234", "'; drop table catalog_items;--"} {
		if err := r.Delete(context.Background(), id); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("id %q: got %v, want ErrNotFound", id, err)
		}
	}
	if exec.execCalls != 0 {
		t.Fatalf("database was queried %d times for malformed ids", exec.execCalls)
	}
}

func TestDeleteUnknownID(t *testing.T) {
	exec := &fakeExecutor{tag: pgconn.NewCommandTag("DELETE 0")}
	r := NewCatalogRepository(exec)

	err := r.Delete(context.Background(), "123e4567-e89b-12d3-a456-426614174000")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if exec.execCalls != 1 {
		t.Fatalf("exec calls = %d, want 1", exec.execCalls)
	}
}

func TestDeleteExistingID(t *testing.T) {
	exec := &fakeExecutor{tag: pgconn.NewCommandTag("DELETE 1")}
	r := NewCatalogRepository(exec)

	if err := r.Delete(context.Background(), "123e4567-e89b-12d3-a456-426614174000"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestCreateValidatesInput(t *testing.T) {
	exec := &fakeExecutor{}
	r := NewCatalogRepository(exec)

	_, err := r.Create(context.Background(), &domain.CatalogItem{Name: "", ImageURL: "https://x/y.jpg"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
	_, err = r.Create(context.Background(), &domain.CatalogItem{Name: "Bob", ImageURL: " "})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
}
