package annotate

import "fmt"

// RangeError reports an annotation that is inverted or outside the text.
type RangeError struct {
	Start, End int
	TextLen    int
}

func (e *RangeError) Error() string {
	if e.End < e.Start {
		return fmt.Sprintf("annotation [%d,%d) ends before it starts", e.Start, e.End)
	}
	return fmt.Sprintf("annotation [%d,%d) is outside text of length %d", e.Start, e.End, e.TextLen)
}

// OverlapError reports two annotations whose ranges intersect.
type OverlapError struct {
	FirstStart, FirstEnd   int
	SecondStart, SecondEnd int
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("annotation [%d,%d) overlaps [%d,%d)",
		e.SecondStart, e.SecondEnd, e.FirstStart, e.FirstEnd)
}

// Validate checks that every non-nil annotation lies inside text and that no
// two annotations overlap. Touching ranges ([0,2) and [2,4)) are fine.
func Validate[P any](text string, anns []*Annotation[P]) error {
	n := Len(text)

	sorted := compact(anns)
	for _, a := range sorted {
		if a.End < a.Start || a.Start < 0 || a.End > n {
			return &RangeError{Start: a.Start, End: a.End, TextLen: n}
		}
	}

	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if cur.Start < prev.End {
			return &OverlapError{
				FirstStart:  prev.Start,
				FirstEnd:    prev.End,
				SecondStart: cur.Start,
				SecondEnd:   cur.End,
			}
		}
	}
	return nil
}
