package gemini

import (
	"errors"
	"regexp"
	"strings"
)

// ErrUnparseableResponse means the model's reply matched neither the TITLE nor
// the IMAGES marker. Upstream format drift surfaces as this distinct failure
// instead of silently defaulting to an empty result.
var ErrUnparseableResponse = errors.New("unparseable response: no TITLE or IMAGES marker found")

// defaultTitle stands in when the reply carried images but no title line.
const defaultTitle = "Unknown Product"

var (
	titlePattern  = regexp.MustCompile(`(?im)^\s*TITLE:\s*(.+)$`)
	imagesPattern = regexp.MustCompile(`(?im)^\s*IMAGES:\s*(.+)$`)
)

// excludedImageHints mark decorative or low-resolution assets.
var excludedImageHints = []string{"thumb", "icon", "sprite", "pixel"}

// parseExtraction scans the model's free text for the TITLE and IMAGES lines.
// A reply matching only one marker keeps defaults for the other; a reply
// matching neither is ErrUnparseableResponse.
func parseExtraction(text string) (string, []string, error) {
	titleMatch := titlePattern.FindStringSubmatch(text)
	imagesMatch := imagesPattern.FindStringSubmatch(text)

	if titleMatch == nil && imagesMatch == nil {
		return "", nil, ErrUnparseableResponse
	}

	title := defaultTitle
	if titleMatch != nil {
		title = strings.TrimSpace(titleMatch[1])
	}

	images := []string{}
	if imagesMatch != nil {
		images = cleanImageURLs(strings.Split(imagesMatch[1], ","))
	}

	return title, images, nil
}

// cleanImageURLs trims tokens, strips enclosing brackets, drops anything that
// is not an http URL or that looks like a decorative asset, and deduplicates
// preserving first-seen order.
func cleanImageURLs(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	images := []string{}

	for _, token := range raw {
		url := strings.Trim(strings.TrimSpace(token), "[]")
		if !strings.HasPrefix(url, "http") {
			continue
		}

		lower := strings.ToLower(url)
		excluded := false
		for _, hint := range excludedImageHints {
			if strings.Contains(lower, hint) {
				excluded = true
				break
			}
		}
		if excluded || seen[url] {
			continue
		}

		seen[url] = true
		images = append(images, url)
	}

	return images
}
