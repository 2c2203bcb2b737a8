package annotate

// Selection tracks the single annotation whose payload is currently revealed.
// The zero value has nothing selected.
type Selection[P comparable] struct {
	current *Annotation[P]
}

// Toggle selects a, or clears the selection when a's payload equals the
// payload already selected. A nil annotation clears the selection.
func (s *Selection[P]) Toggle(a *Annotation[P]) {
	if a == nil || (s.current != nil && s.current.Payload == a.Payload) {
		s.current = nil
		return
	}
	s.current = a
}

// Selected returns the selected annotation, or nil.
func (s *Selection[P]) Selected() *Annotation[P] {
	return s.current
}

// IsSelected reports whether a's payload is the selected one.
func (s *Selection[P]) IsSelected(a *Annotation[P]) bool {
	return a != nil && s.current != nil && s.current.Payload == a.Payload
}

// Clear drops the selection.
func (s *Selection[P]) Clear() {
	s.current = nil
}
