package scene

// Selection is a snapshot of which objects were selected and which one was
// active.
type Selection struct {
	IDs    []string
	Active string
}

// Snapshot captures the current selection in scene order.
func (d *Document) Snapshot() Selection {
	s := Selection{Active: d.active}
	for _, o := range d.objects {
		if d.selected[o.ID] {
			s.IDs = append(s.IDs, o.ID)
		}
	}
	return s
}

// Restore replaces the selection with s. Objects deleted since the snapshot
// was taken are dropped silently.
func (d *Document) Restore(s Selection) {
	d.DeselectAll()
	for _, id := range s.IDs {
		d.Select(id, true)
	}
	d.SetActive(s.Active)
}

// Scope temporarily narrows the selection. The selection captured when the
// scope began is restored by End, which is safe to call more than once.
//
//	scope := doc.BeginScope()
//	defer scope.End()
type Scope struct {
	doc   *Document
	saved Selection
	done  bool
}

// BeginScope captures the current selection.
func (d *Document) BeginScope() *Scope {
	return &Scope{doc: d, saved: d.Snapshot()}
}

// Isolate makes the object the sole selected and active object.
func (s *Scope) Isolate(id string) {
	s.doc.SelectOnly(id)
}

// End restores the captured selection.
func (s *Scope) End() {
	if s.done {
		return
	}
	s.done = true
	s.doc.Restore(s.saved)
}
