package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kostadindraganov/amazon-extractor/internal/catalog"
)

func pendingProducts(ids ...string) []catalog.Product {
	products := make([]catalog.Product, 0, len(ids))
	for _, id := range ids {
		products = append(products, catalog.Product{
			ID:     id,
			URL:    "https://amazon.com/dp/" + id,
			Status: catalog.StatusPending,
			Images: []string{},
		})
	}
	return products
}

func TestStore_SnapshotPreservesOrder(t *testing.T) {
	s := NewStore(pendingProducts("product-0", "product-1", "product-2"))

	snap := s.Snapshot()

	require.Len(t, snap, 3)
	assert.Equal(t, "product-0", snap[0].ID)
	assert.Equal(t, "product-2", snap[2].ID)
}

func TestStore_CompleteLifecycle(t *testing.T) {
	s := NewStore(pendingProducts("product-0"))

	require.NoError(t, s.MarkProcessing("product-0"))
	require.NoError(t, s.Complete("product-0", catalog.Extraction{
		Title:   "Widget",
		Images:  []string{"https://a.com/1.jpg"},
		Sources: []catalog.Source{{Title: "Amazon", URI: "https://amazon.com"}},
	}))

	p, ok := s.Get("product-0")
	require.True(t, ok)
	assert.Equal(t, catalog.StatusCompleted, p.Status)
	assert.Equal(t, "Widget", p.Title)
	assert.Equal(t, []string{"https://a.com/1.jpg"}, p.Images)
	assert.Empty(t, p.Error)
}

func TestStore_FailLifecycle(t *testing.T) {
	s := NewStore(pendingProducts("product-0"))

	require.NoError(t, s.MarkProcessing("product-0"))
	require.NoError(t, s.Fail("product-0", "boom"))

	p, _ := s.Get("product-0")
	assert.Equal(t, catalog.StatusFailed, p.Status)
	assert.Equal(t, "boom", p.Error)
	assert.Empty(t, p.Images)
}

func TestStore_FailWithoutMessageGetsFallback(t *testing.T) {
	s := NewStore(pendingProducts("product-0"))

	require.NoError(t, s.MarkProcessing("product-0"))
	require.NoError(t, s.Fail("product-0", ""))

	p, _ := s.Get("product-0")
	assert.Equal(t, "extraction failed", p.Error)
}

func TestStore_StatusNeverRegresses(t *testing.T) {
	s := NewStore(pendingProducts("product-0"))

	// Cannot complete or fail straight from pending
	assert.ErrorIs(t, s.Complete("product-0", catalog.Extraction{}), ErrInvalidTransition)
	assert.ErrorIs(t, s.Fail("product-0", "x"), ErrInvalidTransition)

	require.NoError(t, s.MarkProcessing("product-0"))
	assert.ErrorIs(t, s.MarkProcessing("product-0"), ErrInvalidTransition)

	require.NoError(t, s.Complete("product-0", catalog.Extraction{Title: "T"}))
	assert.ErrorIs(t, s.MarkProcessing("product-0"), ErrInvalidTransition)
	assert.ErrorIs(t, s.Fail("product-0", "x"), ErrInvalidTransition)
}

func TestStore_UnknownProduct(t *testing.T) {
	s := NewStore(nil)

	assert.ErrorIs(t, s.MarkProcessing("nope"), ErrUnknownProduct)
	assert.ErrorIs(t, s.Requeue("nope"), ErrUnknownProduct)
}

func TestStore_Requeue(t *testing.T) {
	s := NewStore(pendingProducts("product-0"))

	require.NoError(t, s.MarkProcessing("product-0"))
	require.NoError(t, s.Fail("product-0", "boom"))
	require.NoError(t, s.Requeue("product-0"))

	p, _ := s.Get("product-0")
	assert.Equal(t, catalog.StatusPending, p.Status)
	assert.Empty(t, p.Error)

	// Only failed products can be requeued
	assert.ErrorIs(t, s.Requeue("product-0"), ErrInvalidTransition)
}

func TestStore_PendingAndCounts(t *testing.T) {
	s := NewStore(pendingProducts("product-0", "product-1", "product-2"))

	require.NoError(t, s.MarkProcessing("product-1"))
	require.NoError(t, s.Complete("product-1", catalog.Extraction{}))

	pending := s.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "product-0", pending[0].ID)

	counts := s.Counts()
	assert.Equal(t, 2, counts[catalog.StatusPending])
	assert.Equal(t, 1, counts[catalog.StatusCompleted])
}

func TestStore_ReplaceSwapsWholesale(t *testing.T) {
	s := NewStore(pendingProducts("product-0"))
	require.NoError(t, s.MarkProcessing("product-0"))

	s.Replace(pendingProducts("product-5", "product-6"))

	_, ok := s.Get("product-0")
	assert.False(t, ok)
	assert.Len(t, s.Snapshot(), 2)
	assert.Len(t, s.Pending(), 2)
}
