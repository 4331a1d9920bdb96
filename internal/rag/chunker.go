package rag

import "strings"

// separators in boundary-preference order: paragraph, line, sentence, word.
// An empty separator means a hard cut at rune boundaries.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// SplitText splits text into ordered segments of at most maxSize bytes,
// preferring to cut at the highest-priority boundary available. Concatenating
// the segments in order reconstructs the input exactly.
func SplitText(text string, maxSize int) []string {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if len(text) == 0 {
		return nil
	}
	if len(text) <= maxSize {
		return []string{text}
	}
	return split(text, maxSize, separators)
}

func split(text string, maxSize int, seps []string) []string {
	if len(text) <= maxSize {
		return []string{text}
	}
	sep := seps[0]
	if sep == "" {
		return hardCut(text, maxSize)
	}

	pieces := splitAfter(text, sep)
	var out []string
	var window strings.Builder
	flush := func() {
		if window.Len() > 0 {
			out = append(out, window.String())
			window.Reset()
		}
	}
	for _, piece := range pieces {
		if len(piece) > maxSize {
			flush()
			out = append(out, split(piece, maxSize, seps[1:])...)
			continue
		}
		if window.Len()+len(piece) > maxSize {
			flush()
		}
		window.WriteString(piece)
	}
	flush()
	return out
}

// splitAfter keeps the separator attached to the preceding piece so no bytes
// are lost.
func splitAfter(text, sep string) []string {
	parts := strings.SplitAfter(text, sep)
	// SplitAfter can yield a trailing empty piece when text ends with sep.
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// hardCut slices at rune boundaries, each slice at most maxSize bytes.
func hardCut(text string, maxSize int) []string {
	var out []string
	var cur strings.Builder
	for _, r := range text {
		if cur.Len()+len(string(r)) > maxSize && cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
