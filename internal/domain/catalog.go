package domain

import "time"

// CatalogItem is one wig in the try-on catalog. The backing table is owned
// by the catalog service; this service reads ImageURL and ID as swap inputs
// and exposes admin create/list/delete on top of it.
type CatalogItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

// RecentResult is one entry of the per-shop ring buffer of finished
// composites surfaced on the landing view.
type RecentResult struct {
	ID        string    `json:"id"`
	StyleID   string    `json:"style_id"`
	ResultURL string    `json:"result_url"`
	CreatedAt time.Time `json:"created_at"`
}
