package catalog

import (
	"fmt"
	"strings"
)

// MapProducts converts sheet rows into pending product records, keeping only
// rows whose link-column value is a recognizable product link. IDs are
// positional within the source rows, so remapping the same table yields the
// same IDs. An empty result means no valid links were found in linkColumn;
// callers surface that naming the column so the user can pick another.
func MapProducts(rows []map[string]string, linkColumn, groupColumn string) []Product {
	products := make([]Product, 0, len(rows))
	for i, row := range rows {
		url := strings.TrimSpace(row[linkColumn])
		if !IsProductLink(url) {
			continue
		}

		p := Product{
			ID:     fmt.Sprintf("product-%d", i),
			URL:    url,
			Status: StatusPending,
			Images: []string{},
		}
		if groupColumn != "" {
			p.Group = strings.TrimSpace(row[groupColumn])
		}
		products = append(products, p)
	}
	return products
}
