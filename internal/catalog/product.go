// Package catalog models the product records derived from a loaded sheet and
// the heuristics that locate them in it.
package catalog

import "strings"

// Status tracks a product through its extraction lifecycle. Transitions only
// move forward: pending -> processing -> completed|failed. Terminal statuses
// are never re-entered within one load.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving to next is a legal forward step.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// Source is one citation returned by the extraction service.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Product is one row of the sheet that carries a recognizable product link.
// Completed products may legitimately have zero images; failed products always
// carry an error message and no images.
type Product struct {
	ID      string   `json:"id"`
	URL     string   `json:"url"`
	Group   string   `json:"group,omitempty"`
	Status  Status   `json:"status"`
	Title   string   `json:"title,omitempty"`
	Images  []string `json:"images"`
	Sources []Source `json:"sources,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Extraction is the result of one extraction service call.
type Extraction struct {
	Title   string   `json:"title"`
	Images  []string `json:"images"`
	Sources []Source `json:"sources"`
}

// contentMarkers identify cell values that look like product links during
// column inference.
var contentMarkers = []string{"amazon", "amzn", "a.co", "/dp/"}

// productMarkers decide whether a mapped row is kept as a product. The /gp/
// path form only appears in full links, never in inference sampling.
var productMarkers = []string{"amazon", "amzn", "a.co", "/dp/", "/gp/"}

// IsProductLink reports whether the value is recognizable as a product link.
func IsProductLink(value string) bool {
	return containsAny(strings.ToLower(value), productMarkers)
}

func looksLikeLink(value string) bool {
	return containsAny(strings.ToLower(value), contentMarkers)
}

func containsAny(value string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(value, m) {
			return true
		}
	}
	return false
}
