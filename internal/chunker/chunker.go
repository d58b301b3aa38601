package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Splitting boundaries in priority order. Each tier is only consulted for
// pieces the previous tier could not fit under the target size.
var separators = []string{"\n\n", "\n", ". "}

var (
	ErrEmptyContent = errors.New("empty content")
	ErrInvalidText  = errors.New("content is not valid UTF-8")
)

// #region split
// Split cuts content into ordered segments of at most targetSize bytes,
// preferring paragraph boundaries, then line boundaries, then sentence
// boundaries. Adjacent segments share up to overlap bytes, copied from the
// tail of the previous segment, so retrieval keeps cross-boundary context.
//
// A single sentence longer than targetSize is emitted as its own segment
// rather than forced apart. Content with no structural boundaries at all
// falls back to fixed windows at rune boundaries. Content shorter than
// targetSize degenerates to a single segment.
func Split(content string, targetSize, overlap int) ([]string, error) {
	if targetSize <= 0 {
		return nil, fmt.Errorf("target size must be positive, got %d", targetSize)
	}
	if overlap < 0 || overlap >= targetSize {
		return nil, fmt.Errorf("overlap must be in [0, targetSize), got %d", overlap)
	}
	if content == "" {
		return nil, ErrEmptyContent
	}
	if !utf8.ValidString(content) {
		return nil, ErrInvalidText
	}

	if len(content) <= targetSize {
		return []string{content}, nil
	}

	units := splitUnits(content, targetSize, 0)
	if len(units) == 1 {
		// No structural boundary anywhere: arbitrary character windows.
		return windowSplit(content, targetSize, overlap), nil
	}

	return pack(units, targetSize, overlap), nil
}

// #endregion split

// #region split-units
// splitUnits recursively cuts content into units no larger than targetSize,
// walking the separator hierarchy. Separators stay attached to the preceding
// unit so the original text is reconstructable from the segments. A piece
// that exceeds targetSize after the last tier is returned whole.
func splitUnits(content string, targetSize, tier int) []string {
	if tier >= len(separators) {
		return []string{content}
	}

	pieces := splitAfter(content, separators[tier])
	var units []string
	for _, p := range pieces {
		if len(p) > targetSize {
			units = append(units, splitUnits(p, targetSize, tier+1)...)
		} else {
			units = append(units, p)
		}
	}
	return units
}

// splitAfter is strings.SplitAfter without empty trailing pieces.
func splitAfter(s, sep string) []string {
	pieces := strings.SplitAfter(s, sep)
	out := pieces[:0]
	for _, p := range pieces {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// #endregion split-units

// #region pack
// pack merges units into segments. Every segment after the first starts with
// up to overlap bytes of its predecessor's tail, trimmed when the first unit
// leaves less room, so only a unit that alone exceeds targetSize can produce
// an oversized segment.
func pack(units []string, targetSize, overlap int) []string {
	var segments []string
	var buf strings.Builder
	carry := "" // overlap tail of the previous segment
	newLen := 0 // bytes added beyond the carried overlap

	emit := func() {
		seg := buf.String()
		segments = append(segments, seg)
		carry = tail(seg, overlap)
		buf.Reset()
		newLen = 0
	}

	for _, unit := range units {
		if newLen > 0 && buf.Len()+len(unit) > targetSize {
			emit()
		}
		if newLen == 0 {
			c := carry
			if len(c)+len(unit) > targetSize {
				c = tail(c, targetSize-len(unit))
			}
			buf.WriteString(c)
		}
		buf.WriteString(unit)
		newLen += len(unit)
		if buf.Len() > targetSize {
			// Oversized atomic unit: emit whole, never truncate.
			emit()
		}
	}
	if newLen > 0 {
		segments = append(segments, buf.String())
	}
	return segments
}

// #endregion pack

// #region window-split
// windowSplit emits fixed windows for boundary-free content: the first window
// is targetSize bytes, each following window repeats the previous overlap
// bytes and advances by targetSize-overlap.
func windowSplit(content string, targetSize, overlap int) []string {
	var segments []string
	step := targetSize - overlap

	start := 0
	end := runeAlign(content, targetSize)
	segments = append(segments, content[start:end])

	for end < len(content) {
		start = runeAlign(content, start+step)
		next := start + targetSize
		if next > len(content) {
			next = len(content)
		} else {
			next = runeAlign(content, next)
		}
		segments = append(segments, content[start:next])
		end = next
	}
	return segments
}

// #endregion window-split

// #region helpers
// tail returns the last n bytes of s, moved forward to a rune boundary.
func tail(s string, n int) string {
	if n <= 0 || len(s) <= n {
		if n <= 0 {
			return ""
		}
		return s
	}
	i := len(s) - n
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return s[i:]
}

// runeAlign moves a byte offset back to the nearest rune start.
func runeAlign(s string, i int) int {
	if i >= len(s) {
		return len(s)
	}
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// #endregion helpers
