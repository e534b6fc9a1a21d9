package harvest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kostadindraganov/amazon-extractor/internal/catalog"
	"github.com/kostadindraganov/amazon-extractor/internal/extract"
	"github.com/kostadindraganov/amazon-extractor/internal/observability"
	"github.com/kostadindraganov/amazon-extractor/internal/sheet"
)

const testCSV = `Mood Board Spring 2026
Palette,Name,Amazon Link,Notes
Warm,Lamp,https://www.amazon.com/dp/B0LAMP,nice
Warm,Rug,https://ebay.com/itm/123,skip me
Cool,Chair,https://amzn.to/3chair,
`

type staticService struct {
	err error
}

func (s *staticService) Extract(ctx context.Context, url string) (*catalog.Extraction, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &catalog.Extraction{Title: "T", Images: []string{url + "/1.jpg"}}, nil
}

func newTestSession(t *testing.T, csv string, svc extract.Service) *Session {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(csv))
	}))
	t.Cleanup(srv.Close)

	loader := sheet.NewLoader(observability.Nop(), sheet.LoaderConfig{ExportHost: srv.URL})
	return NewSession(observability.Nop(), loader, svc, Config{BatchSize: 2})
}

const shareURL = "https://docs.google.com/spreadsheets/d/doc1/edit#gid=0"

func TestLoadSheet(t *testing.T) {
	s := newTestSession(t, testCSV, &staticService{})

	state, err := s.LoadSheet(context.Background(), shareURL)

	require.NoError(t, err)
	assert.Equal(t, []string{"Palette", "Name", "Amazon Link", "Notes"}, state.Headers)
	assert.Equal(t, "Amazon Link", state.LinkColumn)
	assert.Equal(t, catalog.RationaleKeywordMatch, state.LinkRationale)
	assert.Equal(t, "Palette", state.GroupColumn)
	assert.Equal(t, 3, state.RowCount)

	// The ebay row is filtered out.
	require.Len(t, state.Products, 2)
	assert.Equal(t, "Warm", state.Products[0].Group)
	assert.Equal(t, "Cool", state.Products[1].Group)
}

func TestLoadSheet_NoLinks(t *testing.T) {
	csv := "Name,Notes\nLamp,none\n"
	s := newTestSession(t, csv, &staticService{})

	state, err := s.LoadSheet(context.Background(), shareURL)

	var noLinks *NoLinksError
	require.ErrorAs(t, err, &noLinks)
	assert.Equal(t, "Name", noLinks.Column)

	// State is still replaced so the user can pick another column.
	require.NotNil(t, state)
	assert.Empty(t, state.Products)

	held, err := s.State()
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Notes"}, held.Headers)
}

func TestSetLinkColumn_RederivesWithoutRefetch(t *testing.T) {
	fetches := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		w.Write([]byte(testCSV))
	}))
	defer srv.Close()

	loader := sheet.NewLoader(observability.Nop(), sheet.LoaderConfig{ExportHost: srv.URL})
	s := NewSession(observability.Nop(), loader, &staticService{}, Config{})

	_, err := s.LoadSheet(context.Background(), shareURL)
	require.NoError(t, err)
	require.Equal(t, 1, fetches)

	state, err := s.SetLinkColumn("Notes")
	var noLinks *NoLinksError
	require.ErrorAs(t, err, &noLinks)
	assert.Equal(t, "Notes", state.LinkColumn)
	assert.Empty(t, state.Products)
	assert.Equal(t, 1, fetches)

	state, err = s.SetLinkColumn("Amazon Link")
	require.NoError(t, err)
	assert.Len(t, state.Products, 2)
	assert.Equal(t, 1, fetches)
}

func TestSetLinkColumn_Unknown(t *testing.T) {
	s := newTestSession(t, testCSV, &staticService{})
	_, err := s.LoadSheet(context.Background(), shareURL)
	require.NoError(t, err)

	_, err = s.SetLinkColumn("Nope")
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestSetLinkColumn_BeforeLoad(t *testing.T) {
	s := newTestSession(t, testCSV, &staticService{})

	_, err := s.SetLinkColumn("Name")
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestExtract_EndToEnd(t *testing.T) {
	s := newTestSession(t, testCSV, &staticService{})
	_, err := s.LoadSheet(context.Background(), shareURL)
	require.NoError(t, err)

	report, err := s.Extract(context.Background(), extract.RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Completed)

	for _, p := range s.Products() {
		assert.Equal(t, catalog.StatusCompleted, p.Status)
		assert.Equal(t, "T", p.Title)
	}
}

func TestExtract_BeforeLoad(t *testing.T) {
	s := newTestSession(t, testCSV, &staticService{})

	_, err := s.Extract(context.Background(), extract.RunOptions{})
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestGrouped(t *testing.T) {
	s := newTestSession(t, testCSV, &staticService{})
	_, err := s.LoadSheet(context.Background(), shareURL)
	require.NoError(t, err)

	groups := s.Grouped()

	require.Len(t, groups, 2)
	assert.Equal(t, "Warm", groups[0].Name)
	assert.Equal(t, "Cool", groups[1].Name)
}
