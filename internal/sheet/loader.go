package sheet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/kostadindraganov/amazon-extractor/internal/observability"
)

// Load failure kinds. All three are fatal to the load operation; the caller
// keeps whatever table it already holds.
var (
	ErrInvalidURL  = errors.New("spreadsheet URL has no recognizable document id")
	ErrFetchFailed = errors.New("failed to access sheet; ensure it is shared publicly")
	ErrEmptySheet  = errors.New("sheet has no content")
)

// docIDPattern matches the document id in the share URL path segment after /d/.
var docIDPattern = regexp.MustCompile(`/d/([a-zA-Z0-9-_]+)`)

// headerScanWindow bounds how many leading lines are inspected for the real
// header row. Sheets often carry a merged title cell above the header.
const headerScanWindow = 5

// LoaderConfig holds loader settings.
type LoaderConfig struct {
	ExportHost   string // base host serving the gviz CSV export
	FetchTimeout time.Duration
}

// Loader resolves share URLs into CSV exports and parses them into Tables.
type Loader struct {
	logger     *observability.Logger
	httpClient *http.Client
	exportHost string
}

// NewLoader creates a new sheet loader.
func NewLoader(logger *observability.Logger, cfg LoaderConfig) *Loader {
	host := strings.TrimRight(cfg.ExportHost, "/")
	if host == "" {
		host = "https://docs.google.com"
	}

	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Loader{
		logger:     logger,
		httpClient: &http.Client{Timeout: timeout},
		exportHost: host,
	}
}

// ExportURL resolves a spreadsheet share URL into the CSV export endpoint for
// its tab. The tab id (gid) is read from the query string first, then from the
// fragment's query-style encoding, defaulting to tab 0.
func (l *Loader) ExportURL(shareURL string) (string, error) {
	m := docIDPattern.FindStringSubmatch(shareURL)
	if m == nil {
		return "", ErrInvalidURL
	}
	docID := m[1]

	base := fmt.Sprintf("%s/spreadsheets/d/%s/gviz/tq", l.exportHost, docID)

	parsed, err := url.Parse(shareURL)
	if err != nil {
		return base + "?tqx=out:csv", nil
	}

	gid := parsed.Query().Get("gid")
	if gid == "" {
		if hashParams, err := url.ParseQuery(strings.TrimPrefix(parsed.Fragment, "?")); err == nil {
			gid = hashParams.Get("gid")
		}
	}
	if gid == "" {
		gid = "0"
	}

	params := url.Values{}
	params.Set("tqx", "out:csv")
	params.Set("gid", gid)

	return base + "?" + params.Encode(), nil
}

// Load fetches the CSV export of the given share URL and parses it into a
// Table. The first line within the scan window holding more than one non-empty
// cell is taken as the header row; all lines after it become data rows.
func (l *Loader) Load(ctx context.Context, shareURL string) (*Table, error) {
	csvURL, err := l.ExportURL(shareURL)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	text, err := l.fetch(ctx, csvURL)
	if err != nil {
		return nil, err
	}

	lines := tokenizeLines(text)
	if len(lines) == 0 {
		return nil, ErrEmptySheet
	}

	headerIdx := detectHeaderRow(lines)
	table := buildTable(lines[headerIdx], lines[headerIdx+1:])

	l.logger.Info().
		Int("columns", len(table.Headers)).
		Int("rows", len(table.Rows)).
		Int("header_row", headerIdx).
		Dur("duration", time.Since(start)).
		Msg("Sheet loaded")

	return table, nil
}

// fetch retrieves the CSV text. Any transport error or non-2xx status maps to
// ErrFetchFailed; restricted documents surface as redirects to a login page or
// a 4xx, both of which land here.
func (l *Loader) fetch(ctx context.Context, csvURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, csvURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	return string(body), nil
}

// tokenizeLines splits the CSV text on CR/LF, drops blank lines, and tokenizes
// each remaining line.
func tokenizeLines(text string) [][]string {
	var lines [][]string
	for _, raw := range strings.Split(text, "\n") {
		raw = strings.TrimSuffix(raw, "\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		lines = append(lines, TokenizeLine(raw))
	}
	return lines
}

// detectHeaderRow returns the index of the first line within the scan window
// having more than one non-empty cell, or 0 when none qualifies.
func detectHeaderRow(lines [][]string) int {
	limit := len(lines)
	if limit > headerScanWindow {
		limit = headerScanWindow
	}

	for i := 0; i < limit; i++ {
		nonEmpty := 0
		for _, cell := range lines[i] {
			if cell != "" {
				nonEmpty++
			}
		}
		if nonEmpty > 1 {
			return i
		}
	}
	return 0
}
