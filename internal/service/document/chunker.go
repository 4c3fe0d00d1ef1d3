package document

import "strings"

// separators ordered from the most natural break to the least: paragraph,
// line, word. A chunk is cut at the last such boundary inside the window.
var separators = []string{"\n\n", "\n", " "}

// Split slices text into chunks of at most size runes with the requested
// overlap between consecutive chunks. Boundaries prefer paragraph breaks,
// then line breaks, then spaces, falling back to a hard cut.
func Split(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size < 1 {
		size = 1
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = cutPoint(runes, start, end)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end == len(runes) {
			break
		}

		next := end - overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks
}

// cutPoint searches backwards from the window end for the best separator.
// The cut must stay in the second half of the window so overlap-heavy text
// cannot degenerate into tiny chunks.
func cutPoint(runes []rune, start, end int) int {
	window := string(runes[start:end])
	min := len(window) / 2

	for _, sep := range separators {
		if idx := strings.LastIndex(window, sep); idx >= min {
			return start + len([]rune(window[:idx+len(sep)]))
		}
	}
	return end
}
