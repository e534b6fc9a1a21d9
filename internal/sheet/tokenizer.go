package sheet

import "strings"

// TokenizeLine splits one CSV line into cells, honoring quoted fields and
// doubled-quote escapes. Malformed quoting degrades gracefully: an
// unterminated quote treats the rest of the line as field content.
func TokenizeLine(line string) []string {
	var cells []string
	var cur strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				cur.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ch == ',' && !inQuotes:
			cells = append(cells, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	cells = append(cells, strings.TrimSpace(cur.String()))

	return cells
}
