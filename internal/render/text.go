package render

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

const ellipsis = "…"

// wrapText breaks s into lines no wider than maxWidth pixels. Words wider
// than a line are split by rune. With maxLines > 0 the last kept line ends
// in an ellipsis when text was dropped.
func wrapText(face font.Face, s string, maxWidth int, maxLines int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}

	limit := fixed.I(maxWidth)
	var lines []string
	current := ""

	for _, word := range words {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if font.MeasureString(face, candidate) <= limit {
			current = candidate
			continue
		}

		if current != "" {
			lines = append(lines, current)
			current = ""
		}

		for font.MeasureString(face, word) > limit {
			head, tail := splitToFit(face, word, limit)
			lines = append(lines, head)
			word = tail
		}
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}

	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
		lines[maxLines-1] = fitWithEllipsis(face, lines[maxLines-1], limit)
	}
	return lines
}

// splitToFit returns the longest rune prefix of word that fits, at least one
// rune, and the remainder.
func splitToFit(face font.Face, word string, limit fixed.Int26_6) (string, string) {
	runes := []rune(word)
	n := 1
	for n < len(runes) && font.MeasureString(face, string(runes[:n+1])) <= limit {
		n++
	}
	return string(runes[:n]), string(runes[n:])
}

func fitWithEllipsis(face font.Face, line string, limit fixed.Int26_6) string {
	runes := []rune(strings.TrimSpace(line))
	for len(runes) > 0 {
		candidate := strings.TrimRight(string(runes), " ,.;:") + ellipsis
		if font.MeasureString(face, candidate) <= limit {
			return candidate
		}
		runes = runes[:len(runes)-1]
	}
	return ellipsis
}
