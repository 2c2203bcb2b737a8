// Package annotate splits a text into plain and annotated segments from a set
// of offset ranges.
package annotate

import (
	"sort"
	"unicode/utf16"

	"github.com/dev101/coa/internal/model"
)

// Annotation is a half-open range [Start, End) over a base text plus an
// opaque payload. Offsets count UTF-16 code units, the unit the backend and
// the web client index comment ranges in.
type Annotation[P any] struct {
	Start   int
	End     int
	Payload P
}

// Segment is a contiguous slice of the base text. Annotation is set iff
// Annotated is true and points at the caller's annotation.
type Segment[P any] struct {
	Text       string
	Annotated  bool
	Annotation *Annotation[P]
}

// Annotate partitions text by the given annotations.
//
// Nil entries are dropped and the rest are ordered by Start, ties keeping
// input order. Ranges are clamped to the text. When ranges overlap the
// earlier one wins: a later range is clipped to begin where the previous one
// ended, and a range left empty produces no segment. The segments therefore
// never overlap and their concatenation is always text.
func Annotate[P any](text string, anns []*Annotation[P]) []Segment[P] {
	units := utf16.Encode([]rune(text))
	n := len(units)

	sorted := compact(anns)

	var segments []Segment[P]
	lastEnd := 0
	for _, a := range sorted {
		start := snap(units, clamp(a.Start, 0, n))
		end := snap(units, clamp(a.End, 0, n))
		if start < lastEnd {
			start = lastEnd
		}
		if end <= start {
			continue
		}

		if start > lastEnd {
			segments = append(segments, Segment[P]{Text: decode(units[lastEnd:start])})
		}
		segments = append(segments, Segment[P]{
			Text:       decode(units[start:end]),
			Annotated:  true,
			Annotation: a,
		})
		lastEnd = end
	}

	if lastEnd < n {
		segments = append(segments, Segment[P]{Text: decode(units[lastEnd:])})
	}

	return segments
}

// Len is the length of text in UTF-16 code units.
func Len(text string) int {
	n := 0
	for _, r := range text {
		n += utf16.RuneLen(r)
	}
	return n
}

// snap moves an offset that falls between the halves of a surrogate pair to
// the end of the pair, so no segment holds half a character.
func snap(units []uint16, i int) int {
	if i > 0 && i < len(units) && isHighSurrogate(units[i-1]) && isLowSurrogate(units[i]) {
		return i + 1
	}
	return i
}

func isHighSurrogate(u uint16) bool { return u >= 0xd800 && u < 0xdc00 }

func isLowSurrogate(u uint16) bool { return u >= 0xdc00 && u < 0xe000 }

func decode(units []uint16) string {
	return string(utf16.Decode(units))
}

// AnnotateStrict validates the annotations before segmenting and returns the
// first validation error instead of clipping.
func AnnotateStrict[P any](text string, anns []*Annotation[P]) ([]Segment[P], error) {
	if err := Validate(text, anns); err != nil {
		return nil, err
	}
	return Annotate(text, anns), nil
}

// FromComments maps backend comments to annotations carrying the comment as
// payload. Nil comments map to nil annotations, which Annotate drops.
func FromComments(comments []*model.CommitComment) []*Annotation[model.CommitComment] {
	anns := make([]*Annotation[model.CommitComment], len(comments))
	for i, c := range comments {
		if c == nil {
			continue
		}
		anns[i] = &Annotation[model.CommitComment]{
			Start:   c.StartIndex,
			End:     c.EndIndex,
			Payload: *c,
		}
	}
	return anns
}

// Join concatenates the text of all segments.
func Join[P any](segments []Segment[P]) string {
	size := 0
	for _, s := range segments {
		size += len(s.Text)
	}
	b := make([]byte, 0, size)
	for _, s := range segments {
		b = append(b, s.Text...)
	}
	return string(b)
}

// compact drops nil entries and stable-sorts the rest by Start.
func compact[P any](anns []*Annotation[P]) []*Annotation[P] {
	out := make([]*Annotation[P], 0, len(anns))
	for _, a := range anns {
		if a != nil {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start < out[j].Start
	})
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
