package catalog

import "strings"

// LinkRationale explains how the link column was chosen, so the presentation
// layer can tell the user why instead of presenting an opaque guess.
type LinkRationale string

const (
	// RationaleKeywordMatch means a header matched a link keyword and its
	// column held at least one recognizable product link.
	RationaleKeywordMatch LinkRationale = "keyword_and_content"
	// RationaleContentScan means no keyword candidate held links, but some
	// column's values did.
	RationaleContentScan LinkRationale = "content_only"
	// RationaleFirstHeader means nothing held links and the first header was
	// returned as a default.
	RationaleFirstHeader LinkRationale = "first_header_default"
)

var linkHeaderKeywords = []string{"AMAZON", "LINK", "URL", "PRODUCT", "ASIN"}

var groupHeaderKeywords = []string{"PALETTE", "PALETE", "GROUP", "ITEM"}

// DetectLinkColumn heuristically selects the column holding product links.
// Headers whose names contain a link keyword are tried first, in header order;
// the first whose column content holds a recognizable link wins. Failing that,
// every column is content-tested in order. Failing that too, the first header
// is returned (empty string when there are no headers). The choice is a
// heuristic: callers must allow the user to override it.
func DetectLinkColumn(headers []string, rows []map[string]string) (string, LinkRationale) {
	for _, h := range headers {
		upper := strings.ToUpper(h)
		if !containsAny(upper, linkHeaderKeywords) {
			continue
		}
		if columnHasLink(rows, h) {
			return h, RationaleKeywordMatch
		}
	}

	for _, h := range headers {
		if columnHasLink(rows, h) {
			return h, RationaleContentScan
		}
	}

	if len(headers) > 0 {
		return headers[0], RationaleFirstHeader
	}
	return "", RationaleFirstHeader
}

// DetectGroupColumn returns the first header naming a palette or grouping
// label, or empty string when none matches.
func DetectGroupColumn(headers []string) string {
	for _, h := range headers {
		if containsAny(strings.ToUpper(h), groupHeaderKeywords) {
			return h
		}
	}
	return ""
}

func columnHasLink(rows []map[string]string, header string) bool {
	for _, row := range rows {
		if looksLikeLink(row[header]) {
			return true
		}
	}
	return false
}
